//go:build tinygo || baremetal

package nrf

import (
	proto "github.com/ystepanoff/nrfpair/protocol"

	"device/nrf"
)

// StartHFCLK starts the high-frequency clock required by the radio.
func StartHFCLK() {
	nrf.CLOCK.EVENTS_HFCLKSTARTED.Set(0)
	nrf.CLOCK.TASKS_HFCLKSTART.Set(1)
	for nrf.CLOCK.EVENTS_HFCLKSTARTED.Get() == 0 {
	}
}

// ConfigureRadio sets up mode, power, packet framing and CRC on the given
// channel, with no TX or RX address enabled. Base addresses and prefixes
// are installed separately by setRXAddress and setTXAddress as pipes are
// opened.
func ConfigureRadio(channel uint8) error {
	if channel > 125 {
		return proto.ErrRadioWrite
	}

	nrf.RADIO.POWER.Set(1)
	nrf.RADIO.MODE.Set(nrf.RADIO_MODE_MODE_Nrf_1Mbit)
	nrf.RADIO.TXPOWER.Set(nrf.RADIO_TXPOWER_TXPOWER_0dBm)
	nrf.RADIO.FREQUENCY.Set(uint32(channel))

	nrf.RADIO.TXADDRESS.Set(0)
	nrf.RADIO.RXADDRESSES.Set(0)

	nrf.RADIO.PCNF0.Set(
		(8 << nrf.RADIO_PCNF0_LFLEN_Pos) |
			(0 << nrf.RADIO_PCNF0_S0LEN_Pos) |
			(0 << nrf.RADIO_PCNF0_S1LEN_Pos))

	nrf.RADIO.PCNF1.Set(
		(uint32(proto.PHYPayloadSize) << nrf.RADIO_PCNF1_MAXLEN_Pos) |
			(0 << nrf.RADIO_PCNF1_STATLEN_Pos) |
			(3 << nrf.RADIO_PCNF1_BALEN_Pos) |
			(nrf.RADIO_PCNF1_ENDIAN_Little << nrf.RADIO_PCNF1_ENDIAN_Pos))

	nrf.RADIO.CRCCNF.Set(1)
	nrf.RADIO.CRCINIT.Set(0xFF)
	nrf.RADIO.CRCPOLY.Set(0x107)

	return nil
}

// addressToBaseAndPrefix packs a 5-byte PHY address string (pipe digit +
// 4-character UID, see protocol.MakeAddress) into the nRF radio's 32-bit
// base + 8-bit prefix address scheme, the same BASE0/PREFIX0 split the
// original register-level driver used for its single fixed address.
func addressToBaseAndPrefix(address string) (base uint32, prefix byte) {
	uid := address[1:]
	base = uint32(uid[0])<<24 | uint32(uid[1])<<16 | uint32(uid[2])<<8 | uint32(uid[3])
	prefix = address[0]
	return base, prefix
}

// setRXAddress installs one of the radio's logical RX addresses (0-7) with
// the packed base/prefix for pipe, enabling it in RXADDRESSES.
func setRXAddress(logical int, base uint32, prefix byte) {
	switch logical {
	case 0:
		nrf.RADIO.BASE0.Set(base)
	default:
		nrf.RADIO.BASE1.Set(base)
	}
	switch {
	case logical < 4:
		cur := nrf.RADIO.PREFIX0.Get()
		shift := uint(logical) * 8
		cur &^= 0xFF << shift
		cur |= uint32(prefix) << shift
		nrf.RADIO.PREFIX0.Set(cur)
	default:
		cur := nrf.RADIO.PREFIX1.Get()
		shift := uint(logical-4) * 8
		cur &^= 0xFF << shift
		cur |= uint32(prefix) << shift
		nrf.RADIO.PREFIX1.Set(cur)
	}
	nrf.RADIO.RXADDRESSES.Set(nrf.RADIO.RXADDRESSES.Get() | (1 << uint(logical)))
}

// setTXAddress points logical address 0 (the TX address) at base/prefix.
func setTXAddress(base uint32, prefix byte) {
	nrf.RADIO.BASE0.Set(base)
	cur := nrf.RADIO.PREFIX0.Get()
	cur &^= 0xFF
	cur |= uint32(prefix)
	nrf.RADIO.PREFIX0.Set(cur)
	nrf.RADIO.TXADDRESS.Set(0)
}
