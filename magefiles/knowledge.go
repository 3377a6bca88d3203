//go:build mage

package main

import "fmt"

// Index ingests extracted knowledge items into the SQLite knowledge base and builds the retrieval index.
// See prd004-knowledge-base for full requirements.
func Index() error {
	fmt.Println("[knowledge] Index extracted knowledge items into the SQLite knowledge base.")
	fmt.Println("[knowledge] Not yet implemented.")
	return nil
}
