package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const snapshotFilePrefix = "staking-snap"

// SnapshotFile represents an exported staking snapshot and the files written next to it.
type SnapshotFile struct {
	// Dir is the directory containing the snapshot file
	Dir string
	// SnapshotFileName is the name of the spreadsheet
	SnapshotFileName string
	// CreatedTimestamp is the time when the snapshot was created
	CreatedTimestamp time.Time
}

// SnapshotMetadata describes how a snapshot was produced.
type SnapshotMetadata struct {
	RunId           string   `json:"runId"`
	Version         string   `json:"version"`
	Chain           string   `json:"chain"`
	ChainId         uint64   `json:"chainId"`
	ContractAddress string   `json:"contractAddress"`
	FromBlock       uint64   `json:"fromBlock"`
	ToBlock         uint64   `json:"toBlock"`
	Timestamp       string   `json:"timestamp"`
	FileName        string   `json:"fileName"`
	AddressCount    int      `json:"addressCount"`
	FailedWindows   []string `json:"failedWindows"`
	FailedAddresses []string `json:"failedAddresses"`
}

// HashExt returns the file extension for hash files.
func (sf *SnapshotFile) HashExt() string {
	return "sha256"
}

// SignatureExt returns the file extension for signature files.
func (sf *SnapshotFile) SignatureExt() string {
	return "asc"
}

func (sf *SnapshotFile) baseName() string {
	return strings.TrimSuffix(sf.SnapshotFileName, filepath.Ext(sf.SnapshotFileName))
}

func (sf *SnapshotFile) HashFileName() string {
	return fmt.Sprintf("%s.%s", sf.SnapshotFileName, sf.HashExt())
}

func (sf *SnapshotFile) SignatureFileName() string {
	return fmt.Sprintf("%s.%s", sf.SnapshotFileName, sf.SignatureExt())
}

func (sf *SnapshotFile) MetadataFileName() string {
	return fmt.Sprintf("%s.metadata.json", sf.SnapshotFileName)
}

func (sf *SnapshotFile) StakeDetailsFileName() string {
	return fmt.Sprintf("%s.stakes.csv", sf.baseName())
}

// FullPath returns the path to the spreadsheet.
func (sf *SnapshotFile) FullPath() string {
	return filepath.Join(sf.Dir, sf.SnapshotFileName)
}

func (sf *SnapshotFile) HashFilePath() string {
	return filepath.Join(sf.Dir, sf.HashFileName())
}

func (sf *SnapshotFile) SignatureFilePath() string {
	return filepath.Join(sf.Dir, sf.SignatureFileName())
}

func (sf *SnapshotFile) MetadataFilePath() string {
	return filepath.Join(sf.Dir, sf.MetadataFileName())
}

func (sf *SnapshotFile) StakeDetailsFilePath() string {
	return filepath.Join(sf.Dir, sf.StakeDetailsFileName())
}

// ValidateHash verifies the snapshot file against the hash stored in its hash file.
func (sf *SnapshotFile) ValidateHash() error {
	hashFile, err := os.ReadFile(sf.HashFilePath())
	if err != nil {
		return fmt.Errorf("error reading hash file: %w", err)
	}
	// hash file layout:
	// <hash> <filename>
	fields := strings.Fields(string(hashFile))
	if len(fields) == 0 {
		return fmt.Errorf("hash file %s is empty", sf.HashFilePath())
	}
	hashString := fields[0]

	sum, err := sf.GenerateSnapshotHash()
	if err != nil {
		return fmt.Errorf("error generating snapshot hash: %w", err)
	}

	if sum != hashString {
		return fmt.Errorf("hashes do not match: %s != %s", sum, hashString)
	}
	return nil
}

// GenerateSnapshotHash computes the hex encoded SHA-256 of the snapshot file.
func (sf *SnapshotFile) GenerateSnapshotHash() (string, error) {
	snapshotFile, err := os.Open(sf.FullPath())
	if err != nil {
		return "", fmt.Errorf("error opening snapshot file: %w", err)
	}
	defer snapshotFile.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, snapshotFile); err != nil {
		return "", fmt.Errorf("error reading snapshot file: %w", err)
	}

	sum := strings.TrimPrefix(hexutil.Encode(hash.Sum(nil)), "0x")
	return sum, nil
}

// GenerateAndSaveSnapshotHash writes "<hash> <filename>" to the hash file.
func (sf *SnapshotFile) GenerateAndSaveSnapshotHash() error {
	sum, err := sf.GenerateSnapshotHash()
	if err != nil {
		return fmt.Errorf("error generating snapshot hash: %w", err)
	}

	if err := os.WriteFile(sf.HashFilePath(), []byte(fmt.Sprintf("%s %s\n", sum, sf.SnapshotFileName)), 0644); err != nil {
		return fmt.Errorf("error writing hash file: %w", err)
	}
	return nil
}

// SignSnapshot writes an armored detached signature of the snapshot file using the first
// private key found in the armored key ring.
func (sf *SnapshotFile) SignSnapshot(privateKey string) error {
	keyRing, err := openpgp.ReadArmoredKeyRing(strings.NewReader(privateKey))
	if err != nil {
		return fmt.Errorf("error reading armored key ring: %w", err)
	}
	var signer *openpgp.Entity
	for _, entity := range keyRing {
		if entity.PrivateKey != nil {
			signer = entity
			break
		}
	}
	if signer == nil {
		return fmt.Errorf("no private key found in key ring")
	}
	if signer.PrivateKey.Encrypted {
		return fmt.Errorf("private key is encrypted, a passphrase-less key is required")
	}

	originalFile, err := os.Open(sf.FullPath())
	if err != nil {
		return fmt.Errorf("error opening snapshot file: %w", err)
	}
	defer originalFile.Close()

	var signature bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&signature, signer, originalFile, nil); err != nil {
		return fmt.Errorf("error signing snapshot file: %w", err)
	}
	if err := os.WriteFile(sf.SignatureFilePath(), signature.Bytes(), 0644); err != nil {
		return fmt.Errorf("error writing signature file: %w", err)
	}
	return nil
}

// ValidateSignature verifies the detached signature of the snapshot file with an armored
// public key and returns the signer.
func (sf *SnapshotFile) ValidateSignature(publicKey string) (*openpgp.Entity, error) {
	keyRing, err := openpgp.ReadArmoredKeyRing(strings.NewReader(publicKey))
	if err != nil {
		return nil, fmt.Errorf("error reading armored key ring: %w", err)
	}

	signatureFile, err := os.Open(sf.SignatureFilePath())
	if err != nil {
		return nil, fmt.Errorf("error opening signature file: %w", err)
	}
	defer signatureFile.Close()

	originalFile, err := os.Open(sf.FullPath())
	if err != nil {
		return nil, fmt.Errorf("error opening snapshot file: %w", err)
	}
	defer originalFile.Close()

	signer, err := openpgp.CheckArmoredDetachedSignature(keyRing, originalFile, signatureFile, nil)
	if err != nil {
		return nil, fmt.Errorf("error checking signature: %w", err)
	}

	return signer, nil
}

// GenerateAndSaveMetadata writes the metadata as indented JSON next to the snapshot.
func (sf *SnapshotFile) GenerateAndSaveMetadata(metadata *SnapshotMetadata) error {
	metadata.FileName = sf.SnapshotFileName
	metadata.Timestamp = sf.CreatedTimestamp.Format(time.RFC3339)

	metadataJson, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling metadata: %w", err)
	}
	if err := os.WriteFile(sf.MetadataFilePath(), metadataJson, 0644); err != nil {
		return fmt.Errorf("error writing metadata file: %w", err)
	}
	return nil
}

// ClearFiles removes the snapshot and every file written next to it.
func (sf *SnapshotFile) ClearFiles() {
	_ = os.Remove(sf.FullPath())
	_ = os.Remove(sf.HashFilePath())
	_ = os.Remove(sf.SignatureFilePath())
	_ = os.Remove(sf.MetadataFilePath())
	_ = os.Remove(sf.StakeDetailsFilePath())
}

// newSnapshotFile names the snapshot staking-snap-HHMMSS.xlsx after the creation time.
func newSnapshotFile(dir string, now time.Time) *SnapshotFile {
	return &SnapshotFile{
		Dir:              dir,
		SnapshotFileName: fmt.Sprintf("%s-%s.xlsx", snapshotFilePrefix, now.Format("150405")),
		CreatedTimestamp: now,
	}
}
