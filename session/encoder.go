package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const sessionFormatVersion = 1

const (
	flagHasDevice byte = 1 << iota
	flagMobile
)

// Encode serializes everything except SessionID, which is the Redis key.
//
//	version | len UserID | len ID | created ms | expires ms | flags | [device strings]
//
// The user id sits at a fixed offset so the Lua scripts can read it.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(sessionFormatVersion)

	if err := writeString(&buf, "userID", s.UserID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, "id", s.ID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}

	var flags byte
	if s.Device != nil {
		flags |= flagHasDevice
		if s.Device.IsMobile {
			flags |= flagMobile
		}
	}
	buf.WriteByte(flags)

	if s.Device != nil {
		for _, f := range []struct{ name, value string }{
			{"os", s.Device.OS},
			{"browser", s.Device.Browser},
			{"appVersion", s.Device.AppVersion},
			{"model", s.Device.Model},
		} {
			if err := writeString(&buf, f.name, f.value); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a record produced by Encode. SessionID is left empty.
func Decode(data []byte) (*Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if version != sessionFormatVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorrupt, version)
	}

	s := &Session{}
	if s.UserID, err = readString(r); err != nil {
		return nil, err
	}
	if s.ID, err = readString(r); err != nil {
		return nil, err
	}

	var created, expires int64
	if err := binary.Read(r, binary.BigEndian, &created); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := binary.Read(r, binary.BigEndian, &expires); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s.CreatedAt = time.UnixMilli(created).UTC()
	s.ExpiresAt = time.UnixMilli(expires).UTC()

	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if flags&flagHasDevice != 0 {
		d := &Device{IsMobile: flags&flagMobile != 0}
		for _, dst := range []*string{&d.OS, &d.Browser, &d.AppVersion, &d.Model} {
			if *dst, err = readString(r); err != nil {
				return nil, err
			}
		}
		s.Device = d
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}
	return s, nil
}

func writeString(buf *bytes.Buffer, field, value string) error {
	if len(value) > 255 {
		return errors.New(field + " too long")
	}
	buf.WriteByte(byte(len(value)))
	buf.WriteString(value)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return string(b), nil
}
