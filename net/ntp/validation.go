package ntp

func ValidateResponseMetadata(resp *Packet) error {
	// Based on Ntimed by Poul-Henning Kamp, https://github.com/bsdphk/Ntimed

	if resp.LeapIndicator() == LeapIndicatorUnknown {
		return &DecodeError{Err: ErrUnexpectedResponse, Len: PacketLen}
	}
	if resp.Version() != 3 && resp.Version() != 4 {
		return &DecodeError{Err: ErrUnexpectedResponse, Len: PacketLen}
	}
	if resp.Mode() != ModeServer {
		return &DecodeError{Err: ErrUnexpectedResponse, Len: PacketLen}
	}
	if resp.Stratum == 0 || resp.Stratum > 15 {
		return &DecodeError{Err: ErrUnexpectedResponse, Len: PacketLen}
	}
	return nil
}
