package main

import (
	"mailsense/cmd/mailsense/cmd"
)

func main() {
	cmd.Execute()
}
