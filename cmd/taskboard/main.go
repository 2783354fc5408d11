package main

import "github.com/adanyl0v/taskboard/internal/cli"

func main() {
	cli.Execute()
}
