package main

import "github.com/mselser95/polkamarkets-trader/cmd"

func main() {
	cmd.Execute()
}
