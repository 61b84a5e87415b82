package zerodha

import (
	"sync"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// instrumentMapper manages bidirectional mapping between trading symbols and
// instrument tokens of one exchange.
type instrumentMapper struct {
	symbolToToken map[string]uint32
	tokenToSymbol map[uint32]string
	mu            sync.RWMutex
}

func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{
		symbolToToken: make(map[string]uint32),
		tokenToSymbol: make(map[uint32]string),
	}
}

// load keeps the instruments whose trading symbol is wanted and returns the
// symbols that were not found.
func (im *instrumentMapper) load(instruments kiteconnect.Instruments, wanted []string) []string {
	want := make(map[string]bool, len(wanted))
	for _, s := range wanted {
		want[s] = true
	}

	im.mu.Lock()
	defer im.mu.Unlock()
	for _, inst := range instruments {
		if !want[inst.Tradingsymbol] {
			continue
		}
		token := uint32(inst.InstrumentToken)
		im.symbolToToken[inst.Tradingsymbol] = token
		im.tokenToSymbol[token] = inst.Tradingsymbol
	}

	var missing []string
	for _, s := range wanted {
		if _, ok := im.symbolToToken[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

func (im *instrumentMapper) getToken(symbol string) (uint32, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	token, exists := im.symbolToToken[symbol]
	return token, exists
}

func (im *instrumentMapper) getSymbol(token uint32) string {
	im.mu.RLock()
	defer im.mu.RUnlock()

	return im.tokenToSymbol[token]
}

func (im *instrumentMapper) getAllTokens() []uint32 {
	im.mu.RLock()
	defer im.mu.RUnlock()

	tokens := make([]uint32, 0, len(im.tokenToSymbol))
	for token := range im.tokenToSymbol {
		tokens = append(tokens, token)
	}
	return tokens
}
