// Command domainrepo manages notes through the repository and unit of work
// of this module.
package main

import (
	"os"

	"github.com/phisch84/domain-repository/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(connect); err != nil {
		os.Exit(1)
	}
}
