package main

import "github.com/lemans-dev/sdr-whatsapp/cmd"

func main() {
	cmd.Execute()
}
