package main

import "github.com/NVIDIA/gpu-diagd/pkg/cli"

func main() {
	cli.Execute()
}
