package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersion1 = 1

// Encode serializes a session into the versioned binary record stored in
// Redis.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersion1)

	if err := writeString(&buf, s.UserID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, s.PendingUserID); err != nil {
		return nil, err
	}

	if s.TwoFactorVerified {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a stored record. The session ID is not part of the payload;
// the caller sets it from the Redis key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errors.New("empty session record")
	}
	if version != sessionFormatVersion1 {
		return nil, errors.New("unsupported session record version")
	}

	s := &Session{}
	if s.UserID, err = readString(reader); err != nil {
		return nil, err
	}
	if s.PendingUserID, err = readString(reader); err != nil {
		return nil, err
	}

	flag, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if flag > 1 {
		return nil, errors.New("invalid verified flag")
	}
	s.TwoFactorVerified = flag == 1

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in session record")
	}

	return s, nil
}

func writeString(buf *bytes.Buffer, v string) error {
	if len(v) > 255 {
		return errors.New("session field too long")
	}
	buf.WriteByte(byte(len(v)))
	buf.WriteString(v)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	length, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
