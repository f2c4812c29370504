package visualindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// vocabulary file layout: magic, version, word count, dim, then row-major
// little-endian float32 centroid data.
var vocabMagic = [4]byte{'P', 'V', 'O', 'C'}

const vocabVersion uint32 = 1

// Vocabulary is a fixed set of descriptor centroids (visual words).
type Vocabulary struct {
	Dim   int
	Words [][]float32
}

// ReadVocabulary loads a vocabulary file.
func ReadVocabulary(path string) (*Vocabulary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer file.Close()
	reader := bufio.NewReader(file)

	var magic [4]byte
	if _, err := io.ReadFull(reader, magic[:]); err != nil {
		return nil, fmt.Errorf("read vocabulary magic: %w", err)
	}
	if magic != vocabMagic {
		return nil, fmt.Errorf("%s: not a vocabulary file", path)
	}

	var version, numWords, dim uint32
	for _, dest := range []*uint32{&version, &numWords, &dim} {
		if err := binary.Read(reader, binary.LittleEndian, dest); err != nil {
			return nil, fmt.Errorf("read vocabulary header: %w", err)
		}
	}
	if version != vocabVersion {
		return nil, fmt.Errorf("%s: vocabulary version %d, expected %d", path, version, vocabVersion)
	}
	if numWords == 0 || dim == 0 {
		return nil, fmt.Errorf("%s: empty vocabulary", path)
	}

	vocab := &Vocabulary{Dim: int(dim), Words: make([][]float32, numWords)}
	for i := range vocab.Words {
		word := make([]float32, dim)
		if err := binary.Read(reader, binary.LittleEndian, word); err != nil {
			return nil, fmt.Errorf("read vocabulary word %d: %w", i, err)
		}
		vocab.Words[i] = word
	}
	return vocab, nil
}

// WriteVocabulary stores a vocabulary file.
func WriteVocabulary(path string, vocab *Vocabulary) error {
	if len(vocab.Words) == 0 || vocab.Dim == 0 {
		return fmt.Errorf("refusing to write empty vocabulary")
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vocabulary: %w", err)
	}
	defer file.Close()
	writer := bufio.NewWriter(file)

	if _, err := writer.Write(vocabMagic[:]); err != nil {
		return fmt.Errorf("write vocabulary magic: %w", err)
	}
	header := []uint32{vocabVersion, uint32(len(vocab.Words)), uint32(vocab.Dim)}
	for _, v := range header {
		if err := binary.Write(writer, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write vocabulary header: %w", err)
		}
	}
	for i, word := range vocab.Words {
		if len(word) != vocab.Dim {
			return fmt.Errorf("word %d has dim %d, vocabulary dim is %d", i, len(word), vocab.Dim)
		}
		if err := binary.Write(writer, binary.LittleEndian, word); err != nil {
			return fmt.Errorf("write vocabulary word %d: %w", i, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush vocabulary: %w", err)
	}
	return nil
}

// quantize returns the index of the nearest word.
func (v *Vocabulary) quantize(descriptor []float32) int {
	best := 0
	bestDist := math.Inf(1)
	for i, word := range v.Words {
		var sum float64
		for k := range word {
			d := float64(descriptor[k]) - float64(word[k])
			sum += d * d
		}
		if sum < bestDist {
			bestDist = sum
			best = i
		}
	}
	return best
}
