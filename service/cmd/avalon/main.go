package main

import "github.com/wmxl/card-dealer-miniprogram/service/internal/cli"

func main() {
	cli.Execute()
}
