package main

import "github.com/oshokin/alarm-groups/cmd/alarm-ctl/cmd"

func main() {
	cmd.Execute()
}
