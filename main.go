package main

import "github.com/sekhar08/livekit-memory-chat/cmd"

func main() {
	cmd.Execute()
}
