//go:build mage

package main

import "fmt"

// Search queries academic APIs for papers matching a research question.
// See prd006-search for full requirements.
func Search() error {
	fmt.Println("[search] Query academic APIs (arXiv, Semantic Scholar) for candidate papers.")
	fmt.Println("[search] Not yet implemented.")
	return nil
}
