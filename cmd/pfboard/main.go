package main

import "github.com/mcoot/portfolio-leaderboard/internal/cli"

func main() {
	cli.Execute()
}
