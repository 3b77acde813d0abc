// Command tes-record connects to a running 3es server (over TCP or a
// serial link) and records its byte stream to a sequence of .3es
// files, patching each file's frame count on close in every mode but
// passthrough (-m -). See spec §6 "CLI
// surface — recorder" and §4.12.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/tes-go/tesproto/pkg/telemetry"
	"go.bug.st/serial"
)

var (
	ip      = flag.String("ip", "127.0.0.1", "server address to record from")
	port    = flag.Int("port", 33500, "server port to record from")
	persist = flag.Bool("persist", false, "keep recording new files across reconnects instead of exiting")
	pFlag   = flag.Bool("p", false, "shorthand for --persist")
	overw   = flag.Bool("overwrite", false, "overwrite <prefix>000.3es instead of picking the next free counter")
	wFlag   = flag.Bool("w", false, "shorthand for --overwrite")
	quiet   = flag.Bool("quiet", false, "suppress progress logging")
	qFlag   = flag.Bool("q", false, "shorthand for --quiet")
	mode    = flag.String("m", "c", "recording mode: c=collate+compress C=collate-only z=file-compress u=uncompressed -=passthrough")

	redisAddr    = flag.String("redis-addr", "", "optional Redis address to publish recording telemetry to")
	redisChannel = flag.String("redis-channel", "tes:record", "telemetry channel")

	serialDevice = flag.String("serial", "", "record from a serial device instead of --ip/--port")
	serialBaud   = flag.Int("serial-baud", 115200, "serial baud rate")
)

func main() {
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	prefix := "tes"
	if flag.NArg() > 0 {
		prefix = flag.Arg(0)
	}

	modeChar, err := parseMode(*mode)
	if err != nil {
		log.Printf("tes-record: %v", err)
		os.Exit(1)
	}

	pub, err := telemetry.NewPublisher(*redisAddr, *redisChannel)
	if err != nil {
		log.Fatalf("tes-record: telemetry: %v", err)
	}
	defer pub.Close()

	verbose := !(*quiet || *qFlag)
	doPersist := *persist || *pFlag
	doOverwrite := *overw || *wFlag

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		source, err := dial()
		if err != nil {
			log.Fatalf("tes-record: connect: %v", err)
		}

		path, err := nextRecordingPath(prefix, doOverwrite)
		if err != nil {
			log.Fatalf("tes-record: %v", err)
		}
		if verbose {
			log.Printf("recording to %s (mode %c)", path, modeChar)
		}

		done := make(chan error, 1)
		go func() { done <- record(source, path, modeChar, pub, verbose) }()

		select {
		case err := <-done:
			if err != nil && err != io.EOF && verbose {
				log.Printf("recording %s ended: %v", path, err)
			}
		case <-sigCh:
			_ = source.Close()
			<-done
			log.Printf("tes-record: interrupted, %s finalised", path)
			return
		}

		if !doPersist {
			return
		}
		doOverwrite = false
	}
}

func parseMode(m string) (byte, error) {
	if len(m) != 1 {
		return 0, fmt.Errorf("invalid -m %q: expected one of c,C,z,u,-", m)
	}
	switch m[0] {
	case 'c', 'C', 'z', 'u', '-':
		return m[0], nil
	default:
		return 0, fmt.Errorf("invalid -m %q: expected one of c,C,z,u,-", m)
	}
}

func dial() (io.ReadCloser, error) {
	if *serialDevice != "" {
		sp, err := serial.Open(*serialDevice, &serial.Mode{BaudRate: *serialBaud})
		if err != nil {
			return nil, fmt.Errorf("open serial %s: %w", *serialDevice, err)
		}
		return sp, nil
	}
	conn, err := net.Dial("tcp", net.JoinHostPort(*ip, strconv.Itoa(*port)))
	if err != nil {
		return nil, fmt.Errorf("dial %s:%d: %w", *ip, *port, err)
	}
	return conn, nil
}

// nextRecordingPath returns the path for the next recording: prefix +
// a 3-digit counter + ".3es". With overwrite, always returns counter
// 000; otherwise it picks the first counter not already present in
// the current directory.
func nextRecordingPath(prefix string, overwrite bool) (string, error) {
	if overwrite {
		return fmt.Sprintf("%s%03d.3es", prefix, 0), nil
	}
	for n := 0; n < 1000; n++ {
		candidate := fmt.Sprintf("%s%03d.3es", prefix, n)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free counter for prefix %q in %s", prefix, mustGetwd())
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Clean(wd)
}
