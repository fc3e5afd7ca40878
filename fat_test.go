package fat32nav

import (
	"errors"
	"testing"
)

func Test_fatEntry_Sentinels(t *testing.T) {
	tests := []struct {
		name        string
		entry       fatEntry
		free        bool
		next        bool
		bad         bool
		endOfChain  bool
	}{
		{name: "free", entry: 0, free: true},
		{name: "first data cluster", entry: 2, next: true},
		{name: "largest data cluster", entry: 0x0FFFFFF6, next: true},
		{name: "bad cluster", entry: 0x0FFFFFF7, bad: true},
		{name: "smallest end of chain", entry: 0x0FFFFFF8, endOfChain: true},
		{name: "canonical end of chain", entry: 0x0FFFFFFF, endOfChain: true},
		{name: "reserved cluster one", entry: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.IsFree(); got != tt.free {
				t.Errorf("IsFree() = %v, want %v", got, tt.free)
			}
			if got := tt.entry.IsNextCluster(); got != tt.next {
				t.Errorf("IsNextCluster() = %v, want %v", got, tt.next)
			}
			if got := tt.entry.IsBadCluster(); got != tt.bad {
				t.Errorf("IsBadCluster() = %v, want %v", got, tt.bad)
			}
			if got := tt.entry.IsEndOfChain(); got != tt.endOfChain {
				t.Errorf("IsEndOfChain() = %v, want %v", got, tt.endOfChain)
			}
		})
	}
}

func TestHeader_ClusterArithmetic(t *testing.T) {
	header := Header{
		BPB: BiosParameterBlock{
			BytesPerSector:    512,
			SectorsPerCluster: 4,
			ReservedSectors:   32,
			CountFATs:         2,
		},
		EBPB: ExtendedBiosParameterBlock{SectorsPerFAT: 100},
	}

	if got, want := header.firstFATSector(), uint32(32); got != want {
		t.Errorf("firstFATSector() = %v, want %v", got, want)
	}
	if got, want := header.firstDataSector(), uint32(232); got != want {
		t.Errorf("firstDataSector() = %v, want %v", got, want)
	}
	if got, want := header.bytesPerCluster(), int64(2048); got != want {
		t.Errorf("bytesPerCluster() = %v, want %v", got, want)
	}

	// Cluster 2 starts the data region.
	if got, want := header.clusterAddress(2), int64(232*512); got != want {
		t.Errorf("clusterAddress(2) = %v, want %v", got, want)
	}
	if got, want := header.clusterAddress(5), int64((232+3*4)*512); got != want {
		t.Errorf("clusterAddress(5) = %v, want %v", got, want)
	}

	// FAT entries are four bytes each, starting at the first FAT sector.
	if got, want := header.fatEntryAddress(0), int64(32*512); got != want {
		t.Errorf("fatEntryAddress(0) = %v, want %v", got, want)
	}
	if got, want := header.fatEntryAddress(7), int64(32*512+28); got != want {
		t.Errorf("fatEntryAddress(7) = %v, want %v", got, want)
	}
}

func TestFs_NextCluster(t *testing.T) {
	img := newTestImage()
	img.setFAT(5, 6)
	// The top nibble is reserved and must be masked off.
	img.setFAT(6, 0xF0000007)

	fat, err := New(img.reader())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	next, err := fat.nextCluster(5)
	if err != nil {
		t.Fatalf("nextCluster(5) error = %v", err)
	}
	if next != 6 {
		t.Errorf("nextCluster(5) = %v, want 6", next)
	}

	next, err = fat.nextCluster(6)
	if err != nil {
		t.Fatalf("nextCluster(6) error = %v", err)
	}
	if next != 7 {
		t.Errorf("nextCluster(6) = %v, want 7 after masking", next)
	}
}

func collectChain(fs *Fs, start fatEntry) ([]fatEntry, error) {
	var clusters []fatEntry
	chain := newClusterChain(fs, start)
	for {
		cluster, ok := chain.Next()
		if !ok {
			return clusters, chain.Err()
		}
		clusters = append(clusters, cluster)
	}
}

func TestClusterChain_WalksToEndOfChain(t *testing.T) {
	img := newTestImage()
	img.chain(3, 7, 4)

	fat, err := New(img.reader())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	clusters, err := collectChain(fat, 3)
	if err != nil {
		t.Fatalf("chain error = %v", err)
	}

	want := []fatEntry{3, 7, 4}
	if len(clusters) != len(want) {
		t.Fatalf("chain = %v, want %v", clusters, want)
	}
	for i := range want {
		if clusters[i] != want[i] {
			t.Fatalf("chain = %v, want %v", clusters, want)
		}
	}
}

func TestClusterChain_StopsOnBadCluster(t *testing.T) {
	img := newTestImage()
	img.setFAT(3, 0x0FFFFFF7)

	fat, err := New(img.reader())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	clusters, err := collectChain(fat, 3)
	if !errors.Is(err, ErrBadCluster) {
		t.Fatalf("chain error = %v, want ErrBadCluster", err)
	}
	if len(clusters) != 1 || clusters[0] != 3 {
		t.Errorf("chain = %v, want just the first cluster", clusters)
	}
}

func TestClusterChain_EmptyOnFreeStart(t *testing.T) {
	img := newTestImage()

	fat, err := New(img.reader())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Cluster 0 appears as the first cluster of empty files.
	clusters, err := collectChain(fat, 0)
	if err != nil {
		t.Fatalf("chain error = %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("chain = %v, want empty for a free start cluster", clusters)
	}
}
