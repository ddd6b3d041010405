package main

import "github.com/Atentamente-Consultores-A-C/chatbot-narrativa/cmd"

func main() {
	cmd.Execute()
}
