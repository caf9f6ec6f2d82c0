package main

import "github.com/kujira-labs/oracle-backend/cmd"

func main() {
	cmd.Execute()
}
