package main

import "github.com/jmgc95/gcash-buy-backend/cmd"

func main() {
	cmd.Execute()
}
