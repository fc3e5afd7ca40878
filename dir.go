package fat32nav

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	"github.com/kesmeh/fat32nav/checkpoint"
)

// longNameDecoder accumulates long-filename fragments until the short entry
// they belong to arrives. Fragments are stored in arrival order, which on
// disk is highest order first.
type longNameDecoder struct {
	fragments []string
}

// add decodes one fragment and appends it. A fragment with the terminal bit
// set starts a new sequence, dropping whatever an earlier incomplete
// sequence left behind.
func (d *longNameDecoder) add(entry LongNameEntry) {
	if entry.Order&longNameTerminal != 0 {
		d.fragments = d.fragments[:0]
	}
	d.fragments = append(d.fragments, decodeLongNameFragment(entry))
}

// reset drops any accumulated fragments. Called when a free slot interrupts
// a sequence, which orphans it, and after a name has been assembled.
func (d *longNameDecoder) reset() {
	d.fragments = d.fragments[:0]
}

// assemble joins the fragments in reverse arrival order into the final long
// name and resets the decoder. It returns the empty string when no fragments
// preceded the short entry.
func (d *longNameDecoder) assemble() string {
	if len(d.fragments) == 0 {
		return ""
	}

	var name bytes.Buffer
	for i := len(d.fragments) - 1; i >= 0; i-- {
		name.WriteString(d.fragments[i])
	}
	d.reset()

	return name.String()
}

// decodeLongNameFragment extracts the up to 13 UCS-2 code units of a
// fragment and converts them to UTF-8. The first 0x0000 or 0xFFFF unit
// terminates the fragment; everything behind it is padding.
func decodeLongNameFragment(entry LongNameEntry) string {
	units := make([]uint16, 0, 13)

	collect := func(region []uint16) bool {
		for _, unit := range region {
			if unit == 0x0000 || unit == 0xFFFF {
				return false
			}
			units = append(units, unit)
		}
		return true
	}

	if collect(entry.Name1[:]) && collect(entry.Name2[:]) {
		collect(entry.Name3[:])
	}

	return string(utf16.Decode(units))
}

// readDir walks the cluster chain of a directory and decodes its 32-byte
// slots into logical entries. An explicit 0x00 terminal slot and a chain
// that simply ends both terminate the directory.
func (fs *Fs) readDir(start fatEntry) ([]ExtendedEntryHeader, error) {
	var entries []ExtendedEntryHeader
	var longNames longNameDecoder

	chain := newClusterChain(fs, start)
	for {
		cluster, ok := chain.Next()
		if !ok {
			break
		}

		data, err := fs.readCluster(cluster)
		if err != nil {
			return nil, checkpoint.Wrap(err, ErrReadDir)
		}

		for offset := 0; offset+directoryEntrySize <= len(data); offset += directoryEntrySize {
			slot := data[offset : offset+directoryEntrySize]

			if slot[0] == slotEndOfDirectory {
				return entries, nil
			}
			if slot[0] == slotFree {
				longNames.reset()
				continue
			}

			if slot[11]&attrMask == attrLongName {
				var fragment LongNameEntry
				if err := binary.Read(bytes.NewReader(slot), binary.LittleEndian, &fragment); err != nil {
					return nil, checkpoint.Wrap(err, ErrReadDir)
				}
				longNames.add(fragment)
				continue
			}

			var header EntryHeader
			if err := binary.Read(bytes.NewReader(slot), binary.LittleEndian, &header); err != nil {
				return nil, checkpoint.Wrap(err, ErrReadDir)
			}
			entries = append(entries, ExtendedEntryHeader{
				EntryHeader: header,
				LongName:    longNames.assemble(),
			})
		}
	}

	if err := chain.Err(); err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	return entries, nil
}

// readRoot returns the entries of the root directory, populated when the
// filesystem was opened.
func (fs *Fs) readRoot() ([]ExtendedEntryHeader, error) {
	return fs.root, nil
}

// readCluster loads the data of one cluster.
func (fs *Fs) readCluster(cluster fatEntry) ([]byte, error) {
	if err := fs.image.seek(fs.header.clusterAddress(cluster)); err != nil {
		return nil, err
	}
	return fs.image.bytes(int(fs.header.bytesPerCluster()))
}
