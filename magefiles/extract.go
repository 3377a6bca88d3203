//go:build mage

package main

import "fmt"

// Extract identifies typed knowledge items (claims, methods, definitions, results) from converted Markdown.
// See prd003-extraction for full requirements.
func Extract() error {
	fmt.Println("[extract] Extract claims, methods, definitions, and results from structured Markdown.")
	fmt.Println("[extract] Not yet implemented.")
	return nil
}
