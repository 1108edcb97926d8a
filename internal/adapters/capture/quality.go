package capture

import (
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/jobsdonn/PenDonn/internal/core/domain"
)

// CensusQuality takes a post-hoc census of the EAPOL key-message frames in
// a finalized .cap file and labels the handshake "good" when all four
// messages of the exchange are present, "unknown" otherwise. This census
// is cosmetic only — it sets Handshake.Quality and never gates acceptance;
// hcxpcapngtool's conversion result is the sole verifier (§4.D). Grounded
// on the teacher's handshake_manager.go EAPOL message-number bookkeeping,
// replayed here read-only over a closed pcap rather than live-captured.
func CensusQuality(path string) (domain.HandshakeQuality, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.HandshakeQualityUnknown, err
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return domain.HandshakeQualityUnknown, err
	}

	seen := make(map[uint8]bool)
	source := gopacket.NewPacketSource(reader, reader.LinkType())
	for packet := range source.Packets() {
		dot11Layer := packet.Layer(layers.LayerTypeDot11)
		if dot11Layer == nil {
			continue
		}
		dot11, ok := dot11Layer.(*layers.Dot11)
		if !ok || packet.Layer(layers.LayerTypeEAPOL) == nil {
			continue
		}
		if msg := detectKeyMessageNumber(packet, dot11); msg > 0 {
			seen[msg] = true
		}
	}

	if seen[1] && seen[2] && seen[3] && seen[4] {
		return domain.HandshakeQualityGood, nil
	}
	return domain.HandshakeQualityUnknown, nil
}

// detectKeyMessageNumber infers which of the four EAPOL key frames a
// packet is from its direction (AP->STA vs STA->AP) and the key-info
// ACK/MIC/Install/Secure bits; the replay counter is not read. This is a
// coarse heuristic for the quality label only, never for verification.
func detectKeyMessageNumber(packet gopacket.Packet, dot11 *layers.Dot11) uint8 {
	eapolLayer := packet.Layer(layers.LayerTypeEAPOL)
	if eapolLayer == nil {
		return 0
	}
	payload := eapolLayer.LayerPayload()
	if len(payload) < 4 {
		return 0
	}

	keyInfo := uint16(payload[1])<<8 | uint16(payload[2])
	const (
		keyInfoInstall  = 1 << 6
		keyInfoACK      = 1 << 7
		keyInfoMIC      = 1 << 8
		keyInfoSecure   = 1 << 9
	)

	apToSta := dot11.Address2.String() == dot11.Address3.String()

	switch {
	case apToSta && keyInfo&keyInfoACK != 0 && keyInfo&keyInfoMIC == 0:
		return 1
	case !apToSta && keyInfo&keyInfoMIC != 0 && keyInfo&keyInfoSecure == 0:
		return 2
	case apToSta && keyInfo&keyInfoInstall != 0:
		return 3
	case !apToSta && keyInfo&keyInfoMIC != 0 && keyInfo&keyInfoSecure != 0:
		return 4
	default:
		return 0
	}
}
