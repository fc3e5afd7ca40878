package fat32nav

import (
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf16"
)

// Geometry of the images built by newTestImage. One sector per cluster keeps
// the cluster arithmetic easy to follow in tests, and the claimed sector
// count puts the volume just above the FAT32 cluster minimum.
const (
	testBytesPerSector    = 512
	testSectorsPerCluster = 1
	testReservedSectors   = 32
	testCountFATs         = 2
	testSectorsPerFAT     = 512
	testFirstDataSector   = testReservedSectors + testCountFATs*testSectorsPerFAT
	testSectorsCount      = testFirstDataSector + 65560

	// testDataClusters bounds the part of the data region that is
	// actually backed by the buffer. Tests only place content in the
	// first few clusters.
	testDataClusters = 64

	testRootCluster = 2
	testVolumeLabel = "TESTVOLUME"
	testFreeCount   = 12345
)

const (
	// 2021-03-04 and 12:30:08 in the packed on-disk encoding.
	testPackedDate = (2021-1980)<<9 | 3<<5 | 4
	testPackedTime = 12<<11 | 30<<5 | 8/2
)

// testImage builds a minimal FAT32 image in memory. The zero state has a
// valid boot sector, FSInfo sector, FAT and an empty root directory.
type testImage struct {
	data []byte
}

func newTestImage() *testImage {
	img := &testImage{
		data: make([]byte, (testFirstDataSector+testDataClusters)*testBytesPerSector),
	}
	d := img.data

	// Boot sector: BPB.
	copy(d[0:3], []byte{0xEB, 0x3C, 0x90})
	copy(d[3:11], "MSDOS5.0")
	putU16(d[11:], testBytesPerSector)
	d[13] = testSectorsPerCluster
	putU16(d[14:], testReservedSectors)
	d[16] = testCountFATs
	// Offsets 17-23: the FAT12/16-only fields stay zero on FAT32.
	d[21] = 0xF8
	putU16(d[24:], 32)
	putU16(d[26:], 64)
	putU32(d[32:], testSectorsCount)

	// EBPB.
	putU32(d[36:], testSectorsPerFAT)
	putU32(d[44:], testRootCluster)
	putU16(d[48:], 1) // FSInfo sector
	putU16(d[50:], 6) // backup boot sector
	d[64] = 0x80
	d[66] = 0x29
	putU32(d[67:], 0xCAFEF00D)
	copy(d[71:82], testVolumeLabel+" ")
	copy(d[82:90], "FAT32   ")
	d[510], d[511] = 0x55, 0xAA

	// FSInfo sector.
	fsInfo := 1 * testBytesPerSector
	putU32(d[fsInfo:], 0x41615252)
	putU32(d[fsInfo+484:], 0x61417272)
	putU32(d[fsInfo+488:], testFreeCount)
	putU32(d[fsInfo+492:], 3)
	putU32(d[fsInfo+508:], 0xAA550000)

	// FAT: reserved entries plus an empty, single-cluster root.
	img.setFAT(0, 0x0FFFFFF8)
	img.setFAT(1, 0x0FFFFFFF)
	img.setFAT(testRootCluster, 0x0FFFFFFF)

	return img
}

func (img *testImage) setFAT(cluster, value uint32) {
	offset := testReservedSectors*testBytesPerSector + int(cluster)*4
	putU32(img.data[offset:], value)
}

// chain links the given clusters in order and terminates the last one.
func (img *testImage) chain(clusters ...uint32) {
	for i := 0; i < len(clusters)-1; i++ {
		img.setFAT(clusters[i], clusters[i+1])
	}
	img.setFAT(clusters[len(clusters)-1], 0x0FFFFFF8)
}

func (img *testImage) clusterOffset(cluster uint32) int {
	return (testFirstDataSector + int(cluster) - 2) * testBytesPerSector
}

func (img *testImage) writeCluster(cluster uint32, payload []byte) {
	copy(img.data[img.clusterOffset(cluster):], payload)
}

// writeFileContent chains the given clusters and spreads payload over them.
func (img *testImage) writeFileContent(payload []byte, clusters ...uint32) {
	img.chain(clusters...)
	for _, cluster := range clusters {
		n := len(payload)
		if n > testBytesPerSector*testSectorsPerCluster {
			n = testBytesPerSector * testSectorsPerCluster
		}
		img.writeCluster(cluster, payload[:n])
		payload = payload[n:]
	}
}

func (img *testImage) reader() io.ReadSeeker {
	return bytes.NewReader(img.data)
}

func putU16(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b, v)
}

func putU32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}

// shortEntrySlot encodes one 8.3 directory slot. name must already be the
// padded 11-byte form, for example "A       TXT".
func shortEntrySlot(name string, attributes byte, firstCluster uint32, size uint32) []byte {
	slot := make([]byte, directoryEntrySize)
	copy(slot, "           ")
	copy(slot, name)
	slot[11] = attributes
	putU16(slot[14:], testPackedTime)
	putU16(slot[16:], testPackedDate)
	putU16(slot[18:], testPackedDate)
	putU16(slot[20:], uint16(firstCluster>>16))
	putU16(slot[22:], testPackedTime)
	putU16(slot[24:], testPackedDate)
	putU16(slot[26:], uint16(firstCluster))
	putU32(slot[28:], size)
	return slot
}

// longEntrySlot encodes one long-filename slot holding up to 13 characters
// of the name. Unused units carry the 0x0000 terminator followed by 0xFFFF
// padding, as written by real drivers.
func longEntrySlot(order byte, checksum byte, part string) []byte {
	slot := make([]byte, directoryEntrySize)
	slot[0] = order
	slot[11] = attrLongName
	slot[13] = checksum

	units := make([]uint16, 13)
	for i := range units {
		units[i] = 0xFFFF
	}
	encoded := utf16.Encode([]rune(part))
	copy(units, encoded)
	if len(encoded) < 13 {
		units[len(encoded)] = 0x0000
	}

	offsets := []int{1, 3, 5, 7, 9, 14, 16, 18, 20, 22, 24, 28, 30}
	for i, unit := range units {
		putU16(slot[offsets[i]:], unit)
	}

	return slot
}

// longNameSlots encodes a full long-name sequence for name in on-disk
// order, highest fragment first.
func longNameSlots(name string, checksum byte) [][]byte {
	runes := []rune(name)
	count := (len(runes) + 12) / 13

	var slots [][]byte
	for fragment := count; fragment >= 1; fragment-- {
		start := (fragment - 1) * 13
		end := start + 13
		if end > len(runes) {
			end = len(runes)
		}
		order := byte(fragment)
		if fragment == count {
			order |= longNameTerminal
		}
		slots = append(slots, longEntrySlot(order, checksum, string(runes[start:end])))
	}

	return slots
}

// lfnChecksum is the short-name checksum stored in every long-name slot.
func lfnChecksum(shortName string) byte {
	var sum byte
	for i := 0; i < 11; i++ {
		sum = (sum&1)<<7 + sum>>1 + shortName[i]
	}
	return sum
}

// writeDir writes the given slots into a directory cluster. The rest of the
// cluster stays zero, which terminates the listing.
func (img *testImage) writeDir(cluster uint32, slots ...[]byte) {
	img.writeCluster(cluster, bytes.Join(slots, nil))
}

// repeatPattern builds a deterministic payload of the given size.
func repeatPattern(size int) []byte {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte('A' + i%23)
	}
	return payload
}

// newPopulatedImage builds the shared fixture used by the filesystem level
// tests:
//
//	/A.TXT                 "alpha"
//	/B.TXT                 "beta"
//	/LONGNAME.DAT          100 bytes of pattern data
//	/Hello World.txt       "hello, long names"    (long name over HELLOW~1TXT)
//	/BIG.BIN               3 clusters plus 17 bytes of pattern data
//	/dir1/dir2/file.bin    "payload"              (long names over DIR1/DIR2/FILE.BIN)
func newPopulatedImage() *testImage {
	img := newTestImage()

	helloContent := []byte("hello, long names")
	bigContent := repeatPattern(3*testBytesPerSector + 17)
	longnameContent := repeatPattern(100)

	img.writeDir(testRootCluster, buildRootSlots()...)

	img.writeFileContent([]byte("alpha"), 3)
	img.writeFileContent([]byte("beta"), 4)
	img.writeFileContent(longnameContent, 5)
	img.writeFileContent(helloContent, 6)
	img.writeFileContent(bigContent, 7, 8, 9, 10)

	// dir1 lives in cluster 11, dir2 in cluster 12, file.bin in 13.
	dir2 := shortEntrySlot("DIR2       ", attrDirectory, 12, 0)
	fileBin := shortEntrySlot("FILE    BIN", attrArchive, 13, 7)

	img.chain(11)
	img.writeDir(11, append(longNameSlots("dir2", lfnChecksum("DIR2       ")), dir2)...)
	img.chain(12)
	img.writeDir(12, append(longNameSlots("file.bin", lfnChecksum("FILE    BIN")), fileBin)...)
	img.writeFileContent([]byte("payload"), 13)

	return img
}

func buildRootSlots() [][]byte {
	var slots [][]byte
	slots = append(slots, shortEntrySlot("A       TXT", attrArchive, 3, 5))
	slots = append(slots, shortEntrySlot("B       TXT", attrArchive, 4, 4))
	slots = append(slots, shortEntrySlot("LONGNAMEDAT", attrArchive, 5, 100))
	slots = append(slots, longNameSlots("Hello World.txt", lfnChecksum("HELLOW~1TXT"))...)
	slots = append(slots, shortEntrySlot("HELLOW~1TXT", attrArchive, 6, uint32(len("hello, long names"))))
	slots = append(slots, shortEntrySlot("BIG     BIN", attrArchive, 7, 3*testBytesPerSector+17))
	slots = append(slots, longNameSlots("dir1", lfnChecksum("DIR1       "))...)
	slots = append(slots, shortEntrySlot("DIR1       ", attrDirectory, 11, 0))
	return slots
}
