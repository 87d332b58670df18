// cssq prints the elements of an html document matching a selector.
//
// USAGE:
// $ cssq -f page.html 'ul#nav > li:nth-child(odd) a[href$=".pdf"]'
// $ curl -s example.com | cssq -count 'a'
// $ cssq -url https://example.com -cache-dir /tmp/cssq 'a[href %= "*example*"]'
//
// Flags default to the CSSQ_* environment variables, e.g. CSSQ_CACHE_DIR.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/niklasfasching/nwsel/css"
	"github.com/niklasfasching/nwsel/soup"
	"github.com/niklasfasching/nwsel/util"
	"github.com/tidwall/match"
	"golang.org/x/net/html"
)

type config struct {
	URL      string
	File     string
	CacheDir string
	LogLevel string
	Count    bool
	Native   bool
	Fragment bool
	XML      bool
	Quiet    bool
}

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c := config{LogLevel: "WARN"}
	if err := util.LoadConfig("CSSQ", &c); err != nil {
		return err
	}
	fs := flag.NewFlagSet("cssq", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.URL, "url", c.URL, "load the document from url")
	fs.StringVar(&c.File, "f", c.File, "read the document from file rather than stdin")
	fs.StringVar(&c.CacheDir, "cache-dir", c.CacheDir, "cache http responses in dir")
	fs.StringVar(&c.LogLevel, "log", c.LogLevel, "minimum log level (DEBUG, INFO, WARN, ERROR)")
	fs.BoolVar(&c.Count, "count", c.Count, "print the number of matches only")
	fs.BoolVar(&c.Native, "native", c.Native, "delegate to cascadia where possible")
	fs.BoolVar(&c.Fragment, "fragment", c.Fragment, "parse the input as a body fragment")
	fs.BoolVar(&c.XML, "xml", c.XML, "compare names and values case-sensitively")
	fs.BoolVar(&c.Quiet, "q", c.Quiet, "log selector errors instead of failing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: cssq [flags] selector")
	}
	lvl, err := util.ParseLvl(c.LogLevel)
	if err != nil {
		return err
	}
	ctx := util.WithLogger(context.Background(), util.WithLvl(lvl, util.Writer(stderr)))

	o := css.DefaultOptions()
	if err := util.LoadConfig("CSSQ", &o); err != nil {
		return err
	}
	o.NativeFastPath, o.VerboseErrors = o.NativeFastPath || c.Native, o.VerboseErrors && !c.Quiet
	e := css.New(ctx, o)
	if err := e.RegisterAttributeOperator("%=", match.Match); err != nil {
		return err
	}

	d, err := load(ctx, c, e, stdin)
	if err != nil {
		return err
	}
	d.XMLMode = c.XML
	ns, err := d.Select(fs.Arg(0), nil)
	if err != nil {
		return err
	}
	util.Debugf(ctx, "cssq: %q matched %d elements", fs.Arg(0), len(ns))
	if c.Count {
		_, err := fmt.Fprintln(stdout, len(ns))
		return err
	}
	for _, n := range ns {
		var b strings.Builder
		if err := html.Render(&b, n); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(stdout, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func load(ctx context.Context, c config, e *css.Engine, stdin io.Reader) (*soup.Document, error) {
	if c.URL != "" {
		f := *soup.DefaultFetcher
		f.CacheDir = c.CacheDir
		return f.Load(ctx, c.URL, e)
	}
	r := stdin
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	if c.Fragment {
		return soup.ParseFragment(r, e)
	}
	return soup.ParseDocument(r, e)
}
