// wiredump decodes a captured peer wire stream and prints one line per
// message. useful for inspecting protocol captures without a live swarm.
package main

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/anacrolix/log"
	"github.com/davecgh/go-spew/spew"

	"github.com/wirebt/peerwire/btprotocol"
)

var args struct {
	Path      string `arg:"positional" help:"path to a framed message stream, stdin when omitted"`
	Handshake bool   `arg:"--handshake" help:"stream begins with the 68 byte handshake"`
	MaxLength uint32 `arg:"--max-length" default:"1048576" help:"maximum accepted payload length"`
}

func main() {
	arg.MustParse(&args)

	src := io.Reader(os.Stdin)
	if args.Path != "" {
		f, err := os.Open(args.Path)
		if err != nil {
			log.Printf("unable to open %s: %v", args.Path, err)
			os.Exit(1)
		}
		defer f.Close()
		src = f
	}

	if err := run(bufio.NewReader(src)); err != nil {
		log.Printf("wiredump failed: %v", err)
		os.Exit(1)
	}
}

func run(src *bufio.Reader) error {
	var (
		ext *btprotocol.Extended
	)

	if args.Handshake {
		var (
			hs   btprotocol.HandshakeMessage
			info btprotocol.HandshakeInfoMessage
		)

		if _, err := hs.ReadFrom(src); err != nil {
			return err
		}
		if _, err := info.ReadFrom(src); err != nil {
			return err
		}

		log.Printf("handshake bits %s hash %x peer %x", hs.Extensions, info.Hash, info.PeerID)
	}

	d := btprotocol.Decoder{R: src, MaxLength: btprotocol.Integer(args.MaxLength)}

	for i := 0; ; i++ {
		msg, err := d.Decode(ext)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case btprotocol.ExtendedHandshakeMessage:
			// subsequent extension traffic resolves through the advertised table.
			ext = btprotocol.NewExtended(m)
			log.Printf("%04d extended handshake %s", i, spew.Sdump(m.M))
		case btprotocol.PieceMessage:
			log.Printf("%04d piece %d begin %d block %d bytes", i, m.Index, m.Begin, len(m.Block))
		case btprotocol.BitfieldMessage:
			log.Printf("%04d bitfield %d bytes", i, len(m.Field))
		default:
			log.Printf("%04d %#v", i, msg)
		}
	}
}
