// The main package for the metacrawler executable.
package main

import "github.com/JakeFAU/metacrawler/cmd"

func main() {
	cmd.Execute()
}
