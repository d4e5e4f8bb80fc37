package por

import "testing"

func TestDimensionsEmptyFile(t *testing.T) {
	rows, cols := Dimensions(0)
	if rows != 56 || cols != 1 {
		t.Fatalf("got rows=%d cols=%d, want 56,1", rows, cols)
	}
}

func TestDimensionsAlignment(t *testing.T) {
	rows, _ := Dimensions(26)
	if rows%chunkAlign != 0 {
		t.Fatalf("rows %d is not a multiple of %d", rows, chunkAlign)
	}
}

func TestBuildSecretFixtureVector(t *testing.T) {
	file := []byte("abcdefghijklmnopqrstuvwxyz")
	secret := BuildSecret(file, legacySecretSeed)

	if secret.Rows != 56 || secret.Cols != 1 {
		t.Fatalf("got rows=%d cols=%d, want 56,1", secret.Rows, secret.Cols)
	}
	if len(secret.U) != 1 || secret.U[0] != 57829946736570845 {
		t.Fatalf("secret_m mismatch: %v", secret.U)
	}

	wantHead := []uint64{120891374367124132, 131035456404565768, 141179538442007404, 22254200296736808}
	for i, want := range wantHead {
		if secret.S[i] != want {
			t.Fatalf("secret_n[%d] = %d, want %d", i, secret.S[i], want)
		}
	}
	for i := len(wantHead); i < len(secret.S); i++ {
		if secret.S[i] != 0 {
			t.Fatalf("secret_n[%d] = %d, want 0", i, secret.S[i])
		}
	}
}

func TestAuditRoundTrip(t *testing.T) {
	file := []byte("abcdefghijklmnopqrstuvwxyz")
	secret := BuildSecret(file, legacySecretSeed)
	challenge := NewChallenge(secret.Rows, legacyChallengeSeed)
	response := FulfillChallenge(file, secret.Rows, secret.Cols, challenge)

	if !Audit(secret, challenge, response) {
		t.Fatal("expected audit to succeed for an untampered file")
	}
}

func TestAuditFailsOnTamperedByte(t *testing.T) {
	file := []byte("abcdefghijklmnopqrstuvwxyz")
	secret := BuildSecret(file, legacySecretSeed)
	challenge := NewChallenge(secret.Rows, legacyChallengeSeed)
	response := FulfillChallenge(file, secret.Rows, secret.Cols, challenge)
	if !Audit(secret, challenge, response) {
		t.Fatal("sanity check failed before tampering")
	}

	tampered := append([]byte(nil), file...)
	tampered[0] ^= 0xFF
	badResponse := FulfillChallenge(tampered, secret.Rows, secret.Cols, challenge)
	if Audit(secret, challenge, badResponse) {
		t.Fatal("expected audit to fail after tampering with file contents")
	}
}

func TestAuditRejectsWrongShapes(t *testing.T) {
	file := []byte("abcdefghijklmnopqrstuvwxyz")
	secret := BuildSecret(file, legacySecretSeed)
	challenge := NewChallenge(secret.Rows, legacyChallengeSeed)
	response := FulfillChallenge(file, secret.Rows, secret.Cols, challenge)

	if Audit(secret, challenge[:len(challenge)-1], response) {
		t.Fatal("expected audit to reject a short challenge vector")
	}
	if Audit(secret, challenge, response[:0]) {
		t.Fatal("expected audit to reject a short response vector")
	}
}

func Test10MBFileAudits(t *testing.T) {
	chunk := []byte("abcdefghijklmnopqrstuvwxyz")
	file := make([]byte, 0, len(chunk)*400000)
	for i := 0; i < 400000; i++ {
		file = append(file, chunk...)
	}
	secret := BuildSecret(file, legacySecretSeed)
	challenge := NewChallenge(secret.Rows, legacyChallengeSeed)
	response := FulfillChallenge(file, secret.Rows, secret.Cols, challenge)
	if !Audit(secret, challenge, response) {
		t.Fatal("expected a 10MB file to audit successfully")
	}
}
