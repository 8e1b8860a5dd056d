package loaders

import (
	"fmt"
	"io"
	"os"
)

type BinaryLoader struct{}

// LoadSPIRV reads a compiled shader binary and repacks it into the 32-bit
// words the reflection layer and the shader module creation expect.
func (bl *BinaryLoader) LoadSPIRV(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("%s is not a SPIR-V binary: size %d is not word aligned", path, len(buf))
	}

	return bytesToBytecode(buf), nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
