package pixarray

import (
	"fmt"
	"log"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// MMapFile transmits the buffer into a memory-mapped file, so another process
// (a simulator, a recorder) can watch the frames. The file is sized and mapped
// by the first transmission; later frames must have the same length.
type MMapFile struct {
	path string
	f    *os.File
	m    mmap.MMap
}

func OpenMMapFile(path string) (*MMapFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %v", path, err)
	}
	return &MMapFile{path: path, f: f}, nil
}

func (mf *MMapFile) mapFile(size int) error {
	if size <= 0 {
		return fmt.Errorf("invalid mapping size %d", size)
	}
	if err := mf.f.Truncate(int64(size)); err != nil {
		return fmt.Errorf("couldn't size %s: %v", mf.path, err)
	}
	m, err := mmap.MapRegion(mf.f, size, mmap.RDWR, 0, 0)
	if err != nil {
		return fmt.Errorf("couldn't map %s: %v", mf.path, err)
	}
	log.Printf("Mapped %d bytes of %s", size, mf.path)
	mf.m = m
	return nil
}

func (mf *MMapFile) Transmit(buf []byte) error {
	if mf.m == nil {
		if err := mf.mapFile(len(buf)); err != nil {
			return err
		}
	}
	if len(buf) != len(mf.m) {
		return fmt.Errorf("frame is %d bytes, mapping is %d", len(buf), len(mf.m))
	}
	copy(mf.m, buf)
	return mf.m.Flush()
}

func (mf *MMapFile) Close() error {
	var err error
	if mf.m != nil {
		err = mf.m.Unmap()
	}
	if cerr := mf.f.Close(); err == nil {
		err = cerr
	}
	return err
}
