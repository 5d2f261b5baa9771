// Command vclock runs timer scenarios on a virtual clock.
package main

import "github.com/sarchlab/vclock/cmd/vclock/cmd"

func main() {
	cmd.Execute()
}
