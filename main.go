package main

import "github.com/frahmantamala/pos-admin/cmd"

func main() {
	cmd.Execute()
}
