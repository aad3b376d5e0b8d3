package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/chimera-red/chimera/internal/core/domain"
)

const pcapSnapLen = 65536

// WriteHandshakes writes the captured handshakes as an 802.11 pcap that
// cracking tools can ingest directly. Only the EAPOL bytes were retained
// at capture time, so each packet gets its data header and LLC/SNAP
// rebuilt from the stored address pair.
func WriteHandshakes(w io.Writer, handshakes []domain.Handshake) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(pcapSnapLen, layers.LinkTypeIEEE802_11); err != nil {
		return fmt.Errorf("write pcap header: %w", err)
	}
	for i := range handshakes {
		hs := &handshakes[i]
		if len(hs.EAPOLFrame) == 0 {
			continue
		}
		pkt := rebuildDot11(hs)
		ci := gopacket.CaptureInfo{
			Timestamp:     hs.Timestamp,
			CaptureLength: len(pkt),
			Length:        len(pkt),
		}
		if err := pw.WritePacket(ci, pkt); err != nil {
			return fmt.Errorf("write handshake %s: %w", hs.ID, err)
		}
	}
	return nil
}

// rebuildDot11 frames the retained Message-2 EAPOL bytes the way they
// arrived on the air: a ToDS data frame from the station to its AP,
// followed by the EAPOL LLC/SNAP header.
func rebuildDot11(hs *domain.Handshake) []byte {
	hdr := make([]byte, 24, 32+len(hs.EAPOLFrame))
	hdr[0] = 0x08 // data frame
	hdr[1] = 0x01 // ToDS
	copy(hdr[4:10], hs.BSSID)
	copy(hdr[10:16], hs.Station)
	copy(hdr[16:22], hs.BSSID)
	pkt := append(hdr, 0xAA, 0xAA, 0x03, 0x00, 0x00, 0x00, 0x88, 0x8E)
	return append(pkt, hs.EAPOLFrame...)
}

// ExportHandshakeFile writes a single handshake to dir, named after the
// access point and capture time.
func ExportHandshakeFile(dir string, hs *domain.Handshake) (string, error) {
	name := fmt.Sprintf("handshake_%s_%s.pcap",
		strings.ReplaceAll(hs.BSSID.String(), ":", ""),
		hs.Timestamp.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteHandshakes(f, []domain.Handshake{*hs}); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
