package util

import (
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

const MAX_NUM_CHAR_FILE = 1000
const MIN_NUM_CHAR_FILE = 100
const CHARACTER_SET = "abcdefghijklmnopqrstuvxyzw0123456789"

func GenerateRandomString(size int) []byte {
	res := make([]byte, size)
	characterSetLen := len(CHARACTER_SET)
	for i := 0; i < size; i++ {
		res[i] = CHARACTER_SET[rand.Intn(characterSetLen)]
	}

	return res
}

// GenerateFiles writes numFiles random text files into path and returns
// their names.
func GenerateFiles(path string, numFiles int) ([]string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", path)
	}

	var names []string
	for i := 0; i < numFiles; i++ {
		numCharacters := MIN_NUM_CHAR_FILE + rand.Intn(MAX_NUM_CHAR_FILE-MIN_NUM_CHAR_FILE)
		name := "file_" + strconv.FormatInt(int64(rand.Intn(100000)), 10) + "_" + strconv.Itoa(i) + ".txt"
		err := ioutil.WriteFile(filepath.Join(path, name), GenerateRandomString(numCharacters), 0644)
		if err != nil {
			return names, errors.Wrapf(err, "writing %s", name)
		}
		names = append(names, name)
	}

	return names, nil
}
