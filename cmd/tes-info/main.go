// Command tes-info reports per-(routing id, message id) packet and
// byte counts for a recorded .3es file as CSV on stdout, or prints the
// CBOR manifest sidecar's summary when one is present and --manifest
// is requested. See spec §6 "CLI surface — info".
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/tes-go/tesproto/pkg/collate"
	"github.com/tes-go/tesproto/pkg/pstream"
	"github.com/tes-go/tesproto/pkg/server"
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

var (
	duUnit      = flag.String("du", "B", "byte-total display unit: B, KiB, MiB, GiB")
	useManifest = flag.Bool("manifest", false, "print the CBOR manifest sidecar's summary instead of scanning the file")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tes-info [--du unit] [--manifest] <file.3es>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	divisor, err := unitDivisor(*duUnit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tes-info: %v\n", err)
		os.Exit(1)
	}

	if *useManifest {
		if printManifest(path, *duUnit, divisor) {
			return
		}
		log.Printf("tes-info: no manifest sidecar for %s, falling back to a full scan", path)
	}

	counts, err := scanFile(path)
	if err != nil {
		log.Fatalf("tes-info: %v", err)
	}
	printCSV(counts, *duUnit, divisor)
}

// packetKey identifies one (routing id, message id) pair in the report.
type packetKey struct {
	routingID tesmsg.RoutingID
	messageID tesmsg.MessageID
}

type packetStats struct {
	count uint64
	bytes uint64
}

// scanFile reads path in full and tallies packet count and byte total
// per (routing id, message id), unwrapping collated envelopes so
// nested packets are counted individually rather than as one
// collated-packet entry.
func scanFile(path string) (map[packetKey]*packetStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	counts := make(map[packetKey]*packetStats)
	reader := pstream.NewReader()
	var decoder collate.Decoder
	reader.Feed(data)

	for {
		packet, ok, perr := reader.Next()
		if perr != nil {
			return nil, perr
		}
		if !ok {
			break
		}
		if derr := decoder.SetPacket(packet); derr != nil {
			continue
		}
		for {
			inner, ok, derr := decoder.Next()
			if derr != nil || !ok {
				break
			}
			r := wire.NewReader(inner)
			h, herr := r.Header()
			if herr != nil {
				continue
			}
			key := packetKey{routingID: h.RoutingID, messageID: h.MessageID}
			stat, ok := counts[key]
			if !ok {
				stat = &packetStats{}
				counts[key] = stat
			}
			stat.count++
			stat.bytes += uint64(h.TotalSize())
		}
	}
	return counts, nil
}

func printCSV(counts map[packetKey]*packetStats, unitName string, divisor float64) {
	keys := make([]packetKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].routingID != keys[j].routingID {
			return keys[i].routingID < keys[j].routingID
		}
		return keys[i].messageID < keys[j].messageID
	})

	fmt.Printf("routing_id,routing_name,message_id,message_name,count,bytes_%s\n", unitName)
	for _, k := range keys {
		stat := counts[k]
		fmt.Printf("%d,%s,%d,%s,%d,%.3f\n",
			k.routingID, routingName(k.routingID),
			k.messageID, messageName(k.routingID, k.messageID),
			stat.count, float64(stat.bytes)/divisor)
	}
}

func printManifest(path, unitName string, divisor float64) bool {
	m, err := server.ReadManifest(path + ".manifest")
	if err != nil {
		return false
	}
	fmt.Printf("frame_count,%d\n", m.FrameCount)
	fmt.Printf("duration_micros,%d\n", m.DurationMicros)
	for name, n := range m.ResourceCounts {
		fmt.Printf("resource,%s,%d\n", name, n)
	}
	names := make([]string, 0, len(m.PacketCounts))
	for name := range m.PacketCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("packet,%s,%d\n", name, m.PacketCounts[name])
	}
	_ = unitName
	_ = divisor
	return true
}

func unitDivisor(unit string) (float64, error) {
	switch unit {
	case "B":
		return 1, nil
	case "KiB":
		return 1024, nil
	case "MiB":
		return 1024 * 1024, nil
	case "GiB":
		return 1024 * 1024 * 1024, nil
	default:
		return 0, fmt.Errorf("unknown --du unit %q: expected B, KiB, MiB or GiB", unit)
	}
}

func routingName(rid tesmsg.RoutingID) string {
	switch rid {
	case tesmsg.RIDNull:
		return "null"
	case tesmsg.RIDServerInfo:
		return "server-info"
	case tesmsg.RIDControl:
		return "control"
	case tesmsg.RIDCollatedPacket:
		return "collated-packet"
	case tesmsg.RIDMesh:
		return "mesh-resource"
	case tesmsg.RIDCamera:
		return "camera"
	case tesmsg.RIDCategory:
		return "category"
	case tesmsg.RIDMaterial:
		return "material"
	case tesmsg.RIDSphere:
		return "sphere"
	case tesmsg.RIDBox:
		return "box"
	case tesmsg.RIDCone:
		return "cone"
	case tesmsg.RIDCylinder:
		return "cylinder"
	case tesmsg.RIDCapsule:
		return "capsule"
	case tesmsg.RIDPlane:
		return "plane"
	case tesmsg.RIDStar:
		return "star"
	case tesmsg.RIDArrow:
		return "arrow"
	case tesmsg.RIDMeshShape:
		return "mesh-shape"
	case tesmsg.RIDMeshSet:
		return "mesh-set"
	case tesmsg.RIDPointCloud:
		return "point-cloud"
	case tesmsg.RIDText3D:
		return "text-3d"
	case tesmsg.RIDText2D:
		return "text-2d"
	case tesmsg.RIDPose:
		return "pose"
	default:
		if rid >= tesmsg.UserIDStart {
			return "user"
		}
		return "unknown"
	}
}

func messageName(rid tesmsg.RoutingID, mid tesmsg.MessageID) string {
	if rid == tesmsg.RIDControl {
		switch mid {
		case tesmsg.CIDNull:
			return "null"
		case tesmsg.CIDFrame:
			return "frame"
		case tesmsg.CIDCoordinateFrame:
			return "coordinate-frame"
		case tesmsg.CIDFrameCount:
			return "frame-count"
		case tesmsg.CIDForceFrameFlush:
			return "force-flush"
		case tesmsg.CIDReset:
			return "reset"
		case tesmsg.CIDKeyframe:
			return "keyframe"
		case tesmsg.CIDEnd:
			return "end"
		}
		return "unknown"
	}
	if rid >= tesmsg.ShapeHandlersIDStart && rid <= tesmsg.RIDBuiltInLast {
		switch mid {
		case tesmsg.OIDNull:
			return "null"
		case tesmsg.OIDCreate:
			return "create"
		case tesmsg.OIDUpdate:
			return "update"
		case tesmsg.OIDDestroy:
			return "destroy"
		case tesmsg.OIDData:
			return "data"
		}
	}
	return "unknown"
}
