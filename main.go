package main

import (
	"os"

	"github.com/williamokano/bucket_backuper/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
