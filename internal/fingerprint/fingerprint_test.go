package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_Deterministic(t *testing.T) {
	d := NewDeriver("test-salt")

	fp1, ok1 := d.Derive("203.0.113.7", "TestAgent/1.0")
	fp2, ok2 := d.Derive("203.0.113.7", "TestAgent/1.0")

	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64) // hex от SHA-256
}

func TestDerive_DistinctInputs(t *testing.T) {
	d := NewDeriver("test-salt")

	fp1, _ := d.Derive("203.0.113.7", "TestAgent/1.0")
	fp2, _ := d.Derive("203.0.113.8", "TestAgent/1.0")
	fp3, _ := d.Derive("203.0.113.7", "OtherAgent/2.0")

	assert.NotEqual(t, fp1, fp2)
	assert.NotEqual(t, fp1, fp3)
}

func TestDerive_SaltChangesOutput(t *testing.T) {
	fp1, _ := NewDeriver("salt-a").Derive("203.0.113.7", "TestAgent/1.0")
	fp2, _ := NewDeriver("salt-b").Derive("203.0.113.7", "TestAgent/1.0")
	assert.NotEqual(t, fp1, fp2)
}

func TestDerive_EmptyInputs(t *testing.T) {
	d := NewDeriver("test-salt")

	// Оба входа пусты - клиент несвязываем
	fp, ok := d.Derive("", "")
	assert.False(t, ok)
	assert.Empty(t, fp)

	// Хотя бы один вход дает фингерпринт
	fp, ok = d.Derive("203.0.113.7", "")
	assert.True(t, ok)
	assert.NotEmpty(t, fp)

	fp, ok = d.Derive("", "TestAgent/1.0")
	assert.True(t, ok)
	assert.NotEmpty(t, fp)
}

func TestDerive_SeparatorPreventsCollision(t *testing.T) {
	d := NewDeriver("test-salt")

	// Конкатенация без разделителя дала бы одинаковый вход
	fp1, _ := d.Derive("ab", "c")
	fp2, _ := d.Derive("a", "bc")
	assert.NotEqual(t, fp1, fp2)
}
