package fat32nav

import (
	"fmt"

	"github.com/kesmeh/fat32nav/checkpoint"
)

// Signatures that identify a FAT32 boot sector and FSInfo sector.
const (
	bootSignature       = 0xAA55
	fsInfoLeadSignature = 0x41615252
	fsInfoStructSign    = 0x61417272
	fsInfoTrailSign     = 0xAA550000

	// unknownFSInfoValue marks the free-cluster counters as unknown.
	unknownFSInfoValue = 0xFFFFFFFF

	// minFAT32Clusters is the smallest cluster count of a FAT32 volume.
	// Anything below it is FAT12 or FAT16 by definition.
	minFAT32Clusters = 65525
)

// Header is the decoded boot-sector metadata of an image. It is read once
// when the filesystem is opened and treated as immutable configuration
// afterwards.
type Header struct {
	BPB  BiosParameterBlock
	EBPB ExtendedBiosParameterBlock

	// FSInfo is decoded on a best-effort basis. FSInfoValid reports
	// whether all three signatures matched; navigation never depends
	// on it.
	FSInfo      FileSystemInformation
	FSInfoValid bool
}

// decodeHeader reads BPB, EBPB and FSInfo from the start of the image and
// validates the FAT32 invariants. With skipChecks only the fields needed for
// address arithmetic are verified, which allows opening slightly
// out-of-spec images.
func decodeHeader(image *imageReader, skipChecks bool) (Header, error) {
	var header Header

	if err := image.seek(0); err != nil {
		return header, err
	}
	if err := decodeBPB(image, &header.BPB); err != nil {
		return header, err
	}
	if err := decodeEBPB(image, &header.EBPB); err != nil {
		return header, err
	}

	// The boot code region is opaque; the 0xAA55 signature behind it is
	// not.
	if err := image.skip(420); err != nil {
		return header, err
	}
	signature, err := image.u16()
	if err != nil {
		return header, err
	}

	if err := header.validate(signature, skipChecks); err != nil {
		return header, err
	}

	if err := decodeFSInfo(image, &header); err != nil {
		return header, err
	}

	return header, nil
}

func decodeBPB(image *imageReader, bpb *BiosParameterBlock) error {
	jump, err := image.bytes(3)
	if err != nil {
		return err
	}
	copy(bpb.JumpBoot[:], jump)

	oem, err := image.bytes(8)
	if err != nil {
		return err
	}
	copy(bpb.OEMName[:], oem)

	fields := []interface{}{
		&bpb.BytesPerSector,
		&bpb.SectorsPerCluster,
		&bpb.ReservedSectors,
		&bpb.CountFATs,
		&bpb.RootDirEntries16,
		&bpb.SectorsCount16,
		&bpb.MediaDescriptor,
		&bpb.SectorsPerFAT16,
		&bpb.SectorsPerTrack,
		&bpb.HeadsCount,
		&bpb.HiddenSectors,
		&bpb.SectorsCount32,
	}
	return decodeFields(image, fields)
}

func decodeEBPB(image *imageReader, ebpb *ExtendedBiosParameterBlock) error {
	var rootCluster uint32
	fields := []interface{}{
		&ebpb.SectorsPerFAT,
		&ebpb.Flags,
		&ebpb.FATVersion,
		&rootCluster,
		&ebpb.FSInfoSector,
		&ebpb.BackupBootSector,
	}
	if err := decodeFields(image, fields); err != nil {
		return err
	}
	ebpb.RootDirCluster = fatEntry(rootCluster)

	if err := image.skip(12); err != nil {
		return err
	}

	var err error
	if ebpb.DriveNumber, err = image.u8(); err != nil {
		return err
	}
	if err := image.skip(1); err != nil {
		return err
	}
	if ebpb.Signature, err = image.u8(); err != nil {
		return err
	}
	if ebpb.VolumeID, err = image.u32(); err != nil {
		return err
	}

	label, err := image.bytes(11)
	if err != nil {
		return err
	}
	copy(ebpb.VolumeLabel[:], label)

	systemType, err := image.bytes(8)
	if err != nil {
		return err
	}
	copy(ebpb.SystemType[:], systemType)

	return nil
}

// decodeFields reads a run of contiguous little-endian fields in declaration
// order.
func decodeFields(image *imageReader, fields []interface{}) error {
	for _, field := range fields {
		var err error
		switch f := field.(type) {
		case *uint8:
			*f, err = image.u8()
		case *uint16:
			*f, err = image.u16()
		case *uint32:
			*f, err = image.u32()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// decodeFSInfo reads the FSInfo sector. Signature mismatches only clear
// FSInfoValid; they never fail the open, because the sector is advisory
// free-space bookkeeping.
func decodeFSInfo(image *imageReader, header *Header) error {
	offset := int64(header.EBPB.FSInfoSector) * int64(header.BPB.BytesPerSector)
	if err := image.seek(offset); err != nil {
		return err
	}

	info := &header.FSInfo
	var err error
	if info.LeadSignature, err = image.u32(); err != nil {
		return err
	}
	if err = image.skip(480); err != nil {
		return err
	}
	fields := []interface{}{
		&info.StructSignature,
		&info.FreeClusters,
		&info.AvailableClusterStart,
	}
	if err = decodeFields(image, fields); err != nil {
		return err
	}
	if err = image.skip(12); err != nil {
		return err
	}
	if info.TrailSignature, err = image.u32(); err != nil {
		return err
	}

	header.FSInfoValid = info.LeadSignature == fsInfoLeadSignature &&
		info.StructSignature == fsInfoStructSign &&
		info.TrailSignature == fsInfoTrailSign

	return nil
}

func (h *Header) validate(bootSign uint16, skipChecks bool) error {
	bpb := &h.BPB

	// Address arithmetic relies on these even when checks are skipped.
	switch bpb.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return invalid(fmt.Sprintf("bytes per sector is %d", bpb.BytesPerSector))
	}
	if c := bpb.SectorsPerCluster; c == 0 || c&(c-1) != 0 || c > 128 {
		return invalid(fmt.Sprintf("sectors per cluster is %d", c))
	}
	if bpb.ReservedSectors == 0 {
		return invalid("reserved sector count is 0")
	}

	if skipChecks {
		return nil
	}

	if !(bpb.JumpBoot[0] == 0xEB && bpb.JumpBoot[2] == 0x90) && bpb.JumpBoot[0] != 0xE9 {
		return invalid("missing boot jump instruction")
	}
	if bootSign != bootSignature {
		return invalid(fmt.Sprintf("boot signature is %#04x, want %#04x", bootSign, bootSignature))
	}
	if bpb.RootDirEntries16 != 0 || bpb.SectorsCount16 != 0 || bpb.SectorsPerFAT16 != 0 {
		return invalid("FAT12/16 fields are set")
	}
	if bpb.SectorsCount32 == 0 {
		return invalid("total sector count is 0")
	}
	if s := h.EBPB.Signature; s != 0x28 && s != 0x29 {
		return invalid(fmt.Sprintf("extended boot signature is %#02x", s))
	}
	if h.firstDataSector() >= bpb.SectorsCount32 {
		return invalid("data region starts past the end of the volume")
	}
	if clusters := h.TotalClusters(); clusters < minFAT32Clusters {
		return invalid(fmt.Sprintf("%d clusters is below the FAT32 minimum of %d", clusters, minFAT32Clusters))
	}

	return nil
}

func invalid(reason string) error {
	return checkpoint.Wrap(fmt.Errorf("%s", reason), ErrInvalidImage)
}

// TotalClusters derives the number of data clusters from the sector counts.
func (h *Header) TotalClusters() uint32 {
	dataSectors := h.BPB.SectorsCount32 - uint32(h.firstDataSector())
	return dataSectors / uint32(h.BPB.SectorsPerCluster)
}

// Label returns the volume label with the space padding removed.
func (h *Header) Label() string {
	return trimmedString(h.EBPB.VolumeLabel[:])
}
