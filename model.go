// The structs in this file mirror the on-disk layout of a FAT32 volume.
// Multi-byte integers are little-endian on disk and decoded field by field,
// never by overlaying a struct on raw memory.

package fat32nav

// BiosParameterBlock is the fixed 36-byte header at the start of the boot
// sector. The three *16 fields belong to FAT12/16 and must be zero on a
// FAT32 volume.
type BiosParameterBlock struct {
	JumpBoot          [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	CountFATs         uint8
	RootDirEntries16  uint16
	SectorsCount16    uint16
	MediaDescriptor   uint8
	SectorsPerFAT16   uint16
	SectorsPerTrack   uint16
	HeadsCount        uint16
	HiddenSectors     uint32
	SectorsCount32    uint32
}

// ExtendedBiosParameterBlock is the FAT32-specific tail of the boot sector,
// directly following the BiosParameterBlock.
type ExtendedBiosParameterBlock struct {
	SectorsPerFAT    uint32
	Flags            uint16
	FATVersion       uint16
	RootDirCluster   fatEntry
	FSInfoSector     uint16
	BackupBootSector uint16
	DriveNumber      uint8
	Signature        uint8
	VolumeID         uint32
	VolumeLabel      [11]byte
	SystemType       [8]byte
}

// FileSystemInformation is the FSInfo sector, free-space bookkeeping that is
// informational only. 0xFFFFFFFF in the counters means unknown.
type FileSystemInformation struct {
	LeadSignature         uint32
	StructSignature       uint32
	FreeClusters          uint32
	AvailableClusterStart uint32
	TrailSignature        uint32
}

// EntryHeader is one 32-byte directory slot holding a classic 8.3 entry.
type EntryHeader struct {
	ShortName          [11]byte
	Attributes         byte
	NTReserved         byte
	CreationTimeTenths byte
	CreationTime       uint16
	CreationDate       uint16
	LastAccessedDate   uint16
	FirstClusterHigh   uint16
	LastModTime        uint16
	LastModDate        uint16
	FirstClusterLow    uint16
	Size               uint32
}

// LongNameEntry is one 32-byte directory slot carrying a fragment of a long
// filename, recognized by Attributes == 0x0F. The 13 UCS-2 code units are
// spread over three regions.
type LongNameEntry struct {
	Order     byte
	Name1     [5]uint16
	Attribute byte
	EntryType byte
	Checksum  byte
	Name2     [6]uint16
	Zero      uint16
	Name3     [2]uint16
}

// ExtendedEntryHeader combines a short directory entry with the long name
// assembled from the LongNameEntry slots preceding it, if any.
type ExtendedEntryHeader struct {
	EntryHeader
	LongName string
}

// Attribute bits of a directory entry.
const (
	attrReadOnly  = 0x01
	attrHidden    = 0x02
	attrSystem    = 0x04
	attrVolumeID  = 0x08
	attrDirectory = 0x10
	attrArchive   = 0x20

	// attrLongName is the signature of a long-filename slot, matched
	// against the low six attribute bits.
	attrLongName = 0x0F
	attrMask     = 0x3F
)

// Directory slot markers in the first name byte.
const (
	slotEndOfDirectory = 0x00
	slotFree           = 0xE5
)

// directoryEntrySize is the size of every directory slot.
const directoryEntrySize = 32

// longNameTerminal marks the highest-order fragment of a long name.
const longNameTerminal = 0x40

// FirstCluster combines the split cluster-number halves of the entry.
func (h *EntryHeader) FirstCluster() fatEntry {
	return fatEntry(uint32(h.FirstClusterHigh)<<16 | uint32(h.FirstClusterLow))
}

func (h *EntryHeader) IsReadOnly() bool  { return h.Attributes&attrReadOnly != 0 }
func (h *EntryHeader) IsHidden() bool    { return h.Attributes&attrHidden != 0 }
func (h *EntryHeader) IsSystem() bool    { return h.Attributes&attrSystem != 0 }
func (h *EntryHeader) IsVolumeID() bool  { return h.Attributes&attrVolumeID != 0 }
func (h *EntryHeader) IsDirectory() bool { return h.Attributes&attrDirectory != 0 }
func (h *EntryHeader) IsArchive() bool   { return h.Attributes&attrArchive != 0 }
