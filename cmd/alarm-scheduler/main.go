package main

import "github.com/oshokin/alarm-groups/cmd/alarm-scheduler/cmd"

func main() {
	cmd.Execute()
}
