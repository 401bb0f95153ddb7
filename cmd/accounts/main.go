package main

import "github.com/goliatone/go-accounts/cmd/accounts/cmd"

func main() {
	cmd.Execute()
}
