package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/Priyanshu23/TieredIndexGo/entry"
	"github.com/Priyanshu23/TieredIndexGo/fsio"
)

// Segment file names and table prefixes. A sealed segment directory contains
// exactly the six files RequiredFiles lists.
const (
	keysPrefix   = "keys"
	valuesPrefix = "values"
	bloomFile    = "bloom.bin"
	entriesFile  = "entries.bin"
)

const compressedFlag = uint32(1) << 31

// RequiredFiles lists every file a sealed segment directory must contain.
func RequiredFiles() []string {
	return []string{
		keysPrefix + ".data.bin",
		keysPrefix + ".lookup.bin",
		valuesPrefix + ".data.bin",
		valuesPrefix + ".lookup.bin",
		bloomFile,
		entriesFile,
	}
}

// WriteCached serializes a cached segment into dir. Every file is created
// fresh and fully flushed before the next one begins, so a crashed write
// leaves the directory recognizably incomplete.
func WriteCached(fsys fsio.FS, dir string, c *Cached) error {
	if err := writeTable(fsys, dir, keysPrefix, c.keys); err != nil {
		return err
	}
	if err := writeTable(fsys, dir, valuesPrefix, c.values); err != nil {
		return err
	}
	if err := writeBloom(fsys, dir, c); err != nil {
		return err
	}
	return writeEntries(fsys, dir, c.entries)
}

// writeTable writes <prefix>.data.bin followed by <prefix>.lookup.bin.
// Data records are a 4-byte header (bit 31 = compressed, low 31 bits =
// payload length) followed by the payload; the lookup table holds one
// 8-byte absolute offset per record.
func writeTable(fsys fsio.FS, dir, prefix string, table []entry.Entry) error {
	name := filepath.Join(dir, prefix+".data.bin")
	file, err := fsys.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	offsets := make([]uint64, 0, len(table))
	var position uint64

	for _, e := range table {
		payload := e.Payload()

		header := uint32(len(payload))
		if e.Compressed() {
			header |= compressedFlag
		}

		if err := binary.Write(w, binary.BigEndian, header); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}

		offsets = append(offsets, position)
		position += 4 + uint64(len(payload))
	}

	if err := flush(w, file); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}

	return writeLookup(fsys, dir, prefix, offsets)
}

func writeLookup(fsys fsio.FS, dir, prefix string, offsets []uint64) error {
	name := filepath.Join(dir, prefix+".lookup.bin")
	file, err := fsys.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, offset := range offsets {
		if err := binary.Write(w, binary.BigEndian, offset); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := flush(w, file); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}
	return nil
}

func writeBloom(fsys fsio.FS, dir string, c *Cached) error {
	name := filepath.Join(dir, bloomFile)
	file, err := fsys.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	if _, err := c.bloom.WriteTo(file); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", name, err)
	}
	return nil
}

func writeEntries(fsys fsio.FS, dir string, pairs []IndexPair) error {
	name := filepath.Join(dir, entriesFile)
	file, err := fsys.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, pair := range pairs {
		if err := binary.Write(w, binary.BigEndian, pair.Key); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := binary.Write(w, binary.BigEndian, pair.Value); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := flush(w, file); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}
	return nil
}

func flush(w *bufio.Writer, file fsio.File) error {
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}
