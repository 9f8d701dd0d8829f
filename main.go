/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/aigroupchat/voicechat-be/cmd"
)

func main() {
	cmd.Execute()
}
