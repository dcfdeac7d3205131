package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/uhyunpark/darkpool/pkg/crypto"
	"github.com/uhyunpark/darkpool/pkg/resolver"
)

// seal-intent is the client-side tool: it seals an order against the pool
// key and prints the JSON body ready for POST /api/v1/orders. The engine
// never sees what this tool sees.
func main() {
	keyHex := flag.String("key", "", "pool key, 32-byte hex (from the authority)")
	tokenHex := flag.String("token", "", "token address, 0x-prefixed")
	sideStr := flag.String("side", "buy", "buy or sell")
	amount := flag.Int64("amount", 0, "amount in lots")
	price := flag.Int64("price", 0, "limit price in ticks (max for buys, min for sells)")
	destHex := flag.String("dest", "", "settlement destination address")
	flag.Parse()

	key, err := hex.DecodeString(*keyHex)
	if err != nil || len(key) != 32 {
		fmt.Println("Error: -key must be 32-byte hex")
		os.Exit(1)
	}
	if !common.IsHexAddress(*tokenHex) || !common.IsHexAddress(*destHex) {
		fmt.Println("Error: -token and -dest must be hex addresses")
		os.Exit(1)
	}

	var side resolver.Side
	switch *sideStr {
	case "buy":
		side = resolver.Buy
	case "sell":
		side = resolver.Sell
	default:
		fmt.Printf("Error: unknown side %q\n", *sideStr)
		os.Exit(1)
	}

	// Fresh nullifier and commitment salt per intent. Keep the nullifier:
	// it is the only handle for status lookups and cancellation.
	var nullifierSeed, salt [32]byte
	if _, err := rand.Read(nullifierSeed[:]); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := rand.Read(salt[:]); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	nullifier := ethcrypto.Keccak256Hash(nullifierSeed[:])

	terms := resolver.Terms{
		Amount:      *amount,
		LimitPrice:  *price,
		Destination: common.HexToAddress(*destHex),
	}
	encSide, encPayload, err := resolver.SealIntent(key, nullifier, side, terms)
	if err != nil {
		fmt.Printf("Error sealing: %v\n", err)
		os.Exit(1)
	}
	commitment := crypto.Commitment(encPayload, salt[:])

	fmt.Println("Sealed Intent:")
	fmt.Printf("  Token: %s\n", common.HexToAddress(*tokenHex).Hex())
	fmt.Printf("  Side: %s (sealed)\n", side)
	fmt.Printf("  Amount: %d lots\n", terms.Amount)
	fmt.Printf("  Limit Price: %d ticks\n", terms.LimitPrice)
	fmt.Printf("  Nullifier: %s (KEEP SECRET - needed for status/cancel)\n", nullifier.Hex())
	fmt.Printf("  Commitment: %s\n\n", commitment.Hex())

	body := map[string]any{
		"token":            common.HexToAddress(*tokenHex),
		"encryptedPayload": hexutil.Bytes(encPayload),
		"commitment":       commitment,
		"nullifier":        nullifier,
		"encryptedSide":    hexutil.Bytes(encSide),
	}
	reqJSON, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("To submit this intent:")
	fmt.Println("  POST http://localhost:8080/api/v1/orders")
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Body:")
	fmt.Println(string(reqJSON))
}
