package file

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenShape(t *testing.T) {
	gen := NewTokenGenerator()
	for i := 0; i < 1000; i++ {
		code := gen.NewToken()
		require.Len(t, code, CodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected symbol %q in %q", r, code)
		}
		assert.True(t, ValidCode(code))
	}
}

func TestNewTokenConcurrentUse(t *testing.T) {
	gen := NewTokenGenerator()

	const workers, perWorker = 8, 500
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, gen.NewToken())
			}
			mu.Lock()
			for _, code := range local {
				seen[code] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	// 62^8 codes make a collision among 4000 draws vanishingly unlikely
	assert.Len(t, seen, workers*perWorker)
}

func TestGeneratorsAreIndependentlySeeded(t *testing.T) {
	a, b := NewTokenGenerator(), NewTokenGenerator()
	assert.NotEqual(t, a.NewToken()+a.NewToken(), b.NewToken()+b.NewToken())
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("aB3dE6gH"))
	assert.False(t, ValidCode(""))
	assert.False(t, ValidCode("short"))
	assert.False(t, ValidCode("waytoolong"))
}
