// Command fedreg ingests the Federal Register and answers questions about it.
package main

import "github.com/custodia-labs/fedreg/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
