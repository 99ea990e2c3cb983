package cachekv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc64"
	"io"
	"os"
	"time"
)

// snapshotMagic is the 6-byte literal header identifying a snapshot
// file (SPEC_FULL.md §6.3).
var snapshotMagic = [6]byte{'M', 'E', 'M', 'S', 'N', 'P'}

const snapshotVersion uint32 = 1

var crcTable = crc64.MakeTable(crc64.ISO)

// WriteSnapshot dumps every key under the given prefixes to path,
// atomically (write to a temp file, then rename). The snapshot format
// is a flat key/value list with a CRC64 trailer; it carries no
// structure beyond that, so any entity kind the store holds can be
// captured by passing its key prefix.
func (s *Store) WriteSnapshot(ctx context.Context, path string, prefixes ...string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}

	entries := make(map[string][]byte)
	for _, prefix := range prefixes {
		iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			val, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			entries[key] = val
		}
		if err := iter.Err(); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}

	if err := writeSnapshot(f, entries); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

func writeSnapshot(w io.Writer, entries map[string][]byte) error {
	var body bytes.Buffer
	if err := binary.Write(&body, binary.LittleEndian, snapshotVersion); err != nil {
		return err
	}
	if err := binary.Write(&body, binary.LittleEndian, int64(time.Now().UTC().Unix())); err != nil {
		return err
	}
	if err := binary.Write(&body, binary.LittleEndian, uint32(len(entries))); err != nil {
		return err
	}
	for key, val := range entries {
		if err := binary.Write(&body, binary.LittleEndian, uint32(len(key))); err != nil {
			return err
		}
		body.WriteString(key)
		if err := binary.Write(&body, binary.LittleEndian, uint32(len(val))); err != nil {
			return err
		}
		body.Write(val)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(snapshotMagic[:]); err != nil {
		return err
	}
	if _, err := bw.Write(body.Bytes()); err != nil {
		return err
	}

	checksum := crc64.Checksum(append(snapshotMagic[:], body.Bytes()...), crcTable)
	if err := binary.Write(bw, binary.LittleEndian, checksum); err != nil {
		return err
	}
	return bw.Flush()
}

// LoadSnapshot reads path and rehydrates every entry into the store
// verbatim under its original key. Used on startup to warm the cache
// before the first traffic arrives.
func (s *Store) LoadSnapshot(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot file: %w", err)
	}
	entries, err := parseSnapshot(data)
	if err != nil {
		return fmt.Errorf("parse snapshot file: %w", err)
	}
	for key, val := range entries {
		if err := s.client.Set(ctx, key, val, 0).Err(); err != nil {
			return fmt.Errorf("rehydrate key %s: %w", key, err)
		}
	}
	return nil
}

func parseSnapshot(data []byte) (map[string][]byte, error) {
	if len(data) < 6+4+8+4+8 {
		return nil, fmt.Errorf("snapshot file too short")
	}
	if !bytes.Equal(data[:6], snapshotMagic[:]) {
		return nil, fmt.Errorf("bad snapshot magic")
	}

	trailer := data[len(data)-8:]
	want := binary.LittleEndian.Uint64(trailer)
	got := crc64.Checksum(data[:len(data)-8], crcTable)
	if want != got {
		return nil, fmt.Errorf("snapshot checksum mismatch: want %d got %d", want, got)
	}

	r := bytes.NewReader(data[6 : len(data)-8])
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	var createdAt int64
	if err := binary.Read(r, binary.LittleEndian, &createdAt); err != nil {
		return nil, err
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	entries := make(map[string][]byte, count)
	for i := uint32(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
			return nil, err
		}
		keyBuf := make([]byte, keyLen)
		if _, err := io.ReadFull(r, keyBuf); err != nil {
			return nil, err
		}
		var valLen uint32
		if err := binary.Read(r, binary.LittleEndian, &valLen); err != nil {
			return nil, err
		}
		valBuf := make([]byte, valLen)
		if _, err := io.ReadFull(r, valBuf); err != nil {
			return nil, err
		}
		entries[string(keyBuf)] = valBuf
	}
	return entries, nil
}
