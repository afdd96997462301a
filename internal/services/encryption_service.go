package services

import (
	"icarus/internal/crypto"
	"icarus/internal/models"
)

// EncryptionService applies the field cipher to entry rows. A nil *EncryptionService is valid
// and leaves rows untouched, which is how the server runs without ENCRYPTION_KEY.
type EncryptionService struct {
	crypto *crypto.Cipher
}

// NewEncryptionService returns nil, nil for an empty key.
func NewEncryptionService(hexKey string) (*EncryptionService, error) {
	if hexKey == "" {
		return nil, nil
	}
	c, err := crypto.NewCipher(hexKey)
	if err != nil {
		return nil, err
	}
	return &EncryptionService{crypto: c}, nil
}

// EncryptEntry encrypts the meal name before it is stored
func (s *EncryptionService) EncryptEntry(entry *models.Entry) error {
	if s == nil || entry.MealName == "" {
		return nil
	}
	sealed, err := s.crypto.Encrypt(entry.MealName)
	if err != nil {
		return err
	}
	entry.MealName = sealed
	return nil
}

// DecryptEntry reverses EncryptEntry after a row is read
func (s *EncryptionService) DecryptEntry(entry *models.Entry) error {
	if s == nil || entry.MealName == "" {
		return nil
	}
	plain, err := s.crypto.Decrypt(entry.MealName)
	if err != nil {
		return err
	}
	entry.MealName = plain
	return nil
}

func (s *EncryptionService) DecryptEntries(list []models.Entry) error {
	for i := range list {
		if err := s.DecryptEntry(&list[i]); err != nil {
			return err
		}
	}
	return nil
}
