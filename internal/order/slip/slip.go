package slip

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"tradehub/internal/models"
	"tradehub/internal/utils"

	"github.com/skip2/go-qrcode"
)

// Generator renders handoff slips: a QR code both parties can scan at the
// meetup to agree they are looking at the same order. The payload never
// contains the delivery code.
type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

type payload struct {
	OrderID   string    `json:"order_id"`
	BuyerID   string    `json:"buyer_id"`
	SellerID  string    `json:"seller_id"`
	ItemID    string    `json:"item_id"`
	Quantity  int       `json:"quantity"`
	Reference string    `json:"reference"`
	IssuedAt  time.Time `json:"issued_at"`
}

// GenerateHandoffQR returns a PNG-encoded QR code for the order.
func (g *Generator) GenerateHandoffQR(order models.Order) ([]byte, error) {
	data, err := json.Marshal(payload{
		OrderID:   order.ID,
		BuyerID:   order.BuyerID,
		SellerID:  order.SellerID,
		ItemID:    order.ItemID,
		Quantity:  order.Quantity,
		Reference: utils.GenerateHandoffRef(),
		IssuedAt:  time.Now(),
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
