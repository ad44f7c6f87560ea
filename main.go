package main

import "github.com/vibast-solutions/ms-go-holestpay/cmd"

func main() {
	cmd.Execute()
}
