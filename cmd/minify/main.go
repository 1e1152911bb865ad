package main

import (
	"fmt"
	"log"
	"os"

	"github.com/woozymasta/geomap/internal/page"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Assets string `short:"d" long:"assets" description:"Assets directory"  default:"assets"`
	Output string `short:"o" long:"out"    description:"Output file path"  default:"assets/index.html"`
	Title  string `short:"t" long:"title"  description:"Page title"        default:"geomap"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	p, err := page.Build(os.DirFS(opts.Assets), opts.Title, true)
	if err != nil {
		log.Fatal("error build page:", err)
	}

	if err := os.WriteFile(opts.Output, p.Index, 0644); err != nil {
		log.Fatal(err)
	}

	fmt.Println("minify done")
}
