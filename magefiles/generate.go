//go:build mage

package main

import "fmt"

// Brainstorm explores connections, gaps, and related concepts in the knowledge base.
// See prd005-generation R1 for full requirements.
func Brainstorm() error {
	fmt.Println("[generate] Explore connections and gaps across the knowledge base.")
	fmt.Println("[generate] Not yet implemented.")
	return nil
}

// Draft produces document sections with inline citations from the knowledge base.
// See prd005-generation R3 for full requirements.
func Draft() error {
	fmt.Println("[generate] Produce draft sections with inline citations from the knowledge base.")
	fmt.Println("[generate] Not yet implemented.")
	return nil
}
