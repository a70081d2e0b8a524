package pkg

import "strings"

// QRRedeemPrefix is the scheme prefix baked into every redemption QR payload.
// The scanning UI strips it before calling verify; StripQRPrefix tolerates
// clients that forward the full payload.
const QRRedeemPrefix = "gob:redeem:"

func BuildQRPayload(qrCodeHash string) string {
	return QRRedeemPrefix + qrCodeHash
}

func StripQRPrefix(payload string) string {
	return strings.TrimPrefix(payload, QRRedeemPrefix)
}
