package main

import "github.com/goplus/srcbuild/cmd/srcbuild/internal"

func main() {
	internal.Execute()
}
