// Command kubestronauts publishes Kubestronaut counts to a Google Sheet.
package main

import "github.com/DojoBits/cncf-kubestronauts/cmd"

func main() {
	cmd.Execute()
}
