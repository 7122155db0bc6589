package emitter

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/aspiringporter/porytiles/internal/color"
	"github.com/aspiringporter/porytiles/internal/config"
	"github.com/aspiringporter/porytiles/internal/tileset"
)

// ReadJASCPalette parses a JASC-PAL file back into a GBAPalette. Every
// slot is read regardless of how many colors the original compile
// actually used — unused slots round-trip as black, which never matters
// since the decompiler only ever indexes slots a real tile assignment
// references.
func ReadJASCPalette(r io.Reader) (tileset.GBAPalette, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return tileset.GBAPalette{}, fmt.Errorf("reading JASC-PAL: %w", err)
	}
	if len(lines) < 3+tileset.PalSize {
		return tileset.GBAPalette{}, fmt.Errorf("JASC-PAL file has %d lines, want at least %d", len(lines), 3+tileset.PalSize)
	}
	if lines[0] != "JASC-PAL" {
		return tileset.GBAPalette{}, fmt.Errorf("JASC-PAL file missing header, got %q", lines[0])
	}

	pal := tileset.GBAPalette{Size: tileset.PalSize}
	for i := 0; i < tileset.PalSize; i++ {
		fields := strings.Fields(lines[3+i])
		if len(fields) != 3 {
			return tileset.GBAPalette{}, fmt.Errorf("JASC-PAL color line %d: want 3 fields, got %d", i, len(fields))
		}
		var rgb [3]uint8
		for j, f := range fields {
			v, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				return tileset.GBAPalette{}, fmt.Errorf("JASC-PAL color line %d: %w", i, err)
			}
			rgb[j] = uint8(v)
		}
		c := color.Rgba32{Red: rgb[0], Green: rgb[1], Blue: rgb[2], Alpha: color.AlphaOpaque}
		pal.Colors[i] = color.RgbaToBgr(c)
	}
	return pal, nil
}

// DecodeTileBank reverses TileBankImage: it reads back an indexed PNG's
// own embedded palette (the same flat [paletteIndex*PalSize+slot] table
// TileBankImage built) and reconstructs each GBATile's local palette
// slots plus which hardware palette each tile used. It does not need the
// separately-emitted .pal files since img's own color table is the exact
// table those files mirror.
func DecodeTileBank(img image.Image, tilesPerRow int) ([]tileset.GBATile, []int, error) {
	paletted, ok := img.(*image.Paletted)
	if !ok {
		return nil, nil, fmt.Errorf("tile bank PNG must be a palette-indexed image")
	}
	if tilesPerRow <= 0 {
		return nil, nil, fmt.Errorf("tilesPerRow must be positive")
	}

	bounds := paletted.Bounds()
	widthInTiles := bounds.Dx() / tileset.TileSideLength
	heightInTiles := bounds.Dy() / tileset.TileSideLength
	numTiles := widthInTiles * heightInTiles

	tiles := make([]tileset.GBATile, numTiles)
	tilePalette := make([]int, numTiles)

	for idx := 0; idx < numTiles; idx++ {
		row, col := idx/tilesPerRow, idx%tilesPerRow
		originX, originY := col*tileset.TileSideLength, row*tileset.TileSideLength

		var tile tileset.GBATile
		paletteIdx := 0
		for py := 0; py < tileset.TileSideLength; py++ {
			for px := 0; px < tileset.TileSideLength; px++ {
				globalIdx := int(paletted.ColorIndexAt(originX+px, originY+py))
				if px == 0 && py == 0 {
					paletteIdx = globalIdx / tileset.PalSize
				}
				tile.ColorIndexes[py*tileset.TileSideLength+px] = uint8(globalIdx % tileset.PalSize)
			}
		}
		tiles[idx] = tile
		tilePalette[idx] = paletteIdx
	}

	return tiles, tilePalette, nil
}

// metatileEntryFromBytes is ReadMetatileEntries' per-record inverse of
// metatileEntryBytes.
func metatileEntryFromBytes(b [2]byte) tileset.Assignment {
	v := binary.LittleEndian.Uint16(b[:])
	return tileset.Assignment{
		TileIndex:    int(v & 0x3FF),
		HFlip:        v&(1<<10) != 0,
		VFlip:        v&(1<<11) != 0,
		PaletteIndex: int((v >> 12) & 0xF),
	}
}

// ReadMetatileEntries parses a metatiles.bin stream back into one
// Assignment per 2-byte record, in file order. Attributes are left zero;
// callers merge them in from ReadMetatileAttributes by position.
func ReadMetatileEntries(r io.Reader) ([]tileset.Assignment, error) {
	br := bufio.NewReader(r)
	var out []tileset.Assignment
	for {
		var b [2]byte
		_, err := io.ReadFull(br, b[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading metatile entry: %w", err)
		}
		out = append(out, metatileEntryFromBytes(b))
	}
	return out, nil
}

// ReadMetatileAttributes parses a metatile_attributes.bin stream back
// into one Attributes record per entry, sized per format.
func ReadMetatileAttributes(r io.Reader, format config.AttributesFormat) ([]tileset.Attributes, error) {
	br := bufio.NewReader(r)
	var out []tileset.Attributes
	for {
		switch format {
		case config.AttributesFirered:
			var b [4]byte
			_, err := io.ReadFull(br, b[:])
			if err == io.EOF {
				return out, nil
			}
			if err != nil {
				return nil, fmt.Errorf("reading metatile attribute: %w", err)
			}
			v := binary.LittleEndian.Uint32(b[:])
			out = append(out, tileset.Attributes{
				Behavior:      uint16(v & 0x1FF),
				TerrainType:   uint8((v >> 9) & 0x1F),
				EncounterType: uint8((v >> 24) & 0x7),
				LayerType:     uint8((v >> 29) & 0x3),
			})
		default:
			var b [2]byte
			_, err := io.ReadFull(br, b[:])
			if err == io.EOF {
				return out, nil
			}
			if err != nil {
				return nil, fmt.Errorf("reading metatile attribute: %w", err)
			}
			v := binary.LittleEndian.Uint16(b[:])
			out = append(out, tileset.Attributes{
				Behavior:  v & 0xFF,
				LayerType: uint8((v >> 12) & 0xF),
			})
		}
	}
}
