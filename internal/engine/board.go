package engine

import (
	"slices"
	"strings"
	"unicode"
)

// MaxAttempts is the wrong-guess budget for one word.
const MaxAttempts = 6

// Placeholder marks a not-yet-guessed character in a reveal mask.
const Placeholder = '_'

type BoardStatus string

const (
	BoardInProgress BoardStatus = "in_progress"
	BoardWon        BoardStatus = "won"
	BoardLost       BoardStatus = "lost"
)

// Board is one guessing direction: a secret word plus the opponent's progress
// against it. Word is empty until the owner submits one.
type Board struct {
	Word         string
	Revealed     []rune
	Guessed      []rune
	AttemptsLeft int
	Status       BoardStatus
}

// NewEmptyBoard is a board with no word yet: full attempts, nothing revealed.
func NewEmptyBoard() Board {
	return Board{AttemptsLeft: MaxAttempts, Status: BoardInProgress}
}

// NewBoard starts a board for a submitted word. The word must already be
// normalized.
func NewBoard(word string) Board {
	revealed := make([]rune, len(word))
	for i := range revealed {
		revealed[i] = Placeholder
	}
	return Board{
		Word:         word,
		Revealed:     revealed,
		Guessed:      make([]rune, 0, 26),
		AttemptsLeft: MaxAttempts,
		Status:       BoardInProgress,
	}
}

func (b Board) clone() Board {
	nb := b
	nb.Revealed = slices.Clone(b.Revealed)
	nb.Guessed = slices.Clone(b.Guessed)
	return nb
}

func (b Board) HasWord() bool { return b.Word != "" }

func (b Board) Terminal() bool { return b.Status != BoardInProgress }

func (b Board) HasGuessed(letter rune) bool {
	return slices.Contains(b.Guessed, letter)
}

// Mask renders the reveal mask as a string, placeholders included.
func (b Board) Mask() string { return string(b.Revealed) }

// GuessedString renders guessed letters in guess order for display.
func (b Board) GuessedString() string { return string(b.Guessed) }

// Guess applies one normalized, not-yet-guessed letter: reveal every matching
// position, or burn an attempt on a miss, then settle won/lost.
func (b *Board) Guess(letter rune) {
	b.Guessed = append(b.Guessed, letter)
	if strings.ContainsRune(b.Word, letter) {
		for i, c := range b.Word {
			if c == letter {
				b.Revealed[i] = letter
			}
		}
	} else {
		b.AttemptsLeft--
	}

	if b.AttemptsLeft <= 0 {
		b.Status = BoardLost
		return
	}
	if !slices.Contains(b.Revealed, Placeholder) {
		b.Status = BoardWon
	}
}

// RevealAll discloses the full word, as happens when a round ends.
func (b *Board) RevealAll() {
	for i, c := range b.Word {
		b.Revealed[i] = c
	}
}

// NormalizeLetter lowercases a guess and rejects anything outside a-z.
func NormalizeLetter(r rune) (rune, error) {
	r = unicode.ToLower(r)
	if r < 'a' || r > 'z' {
		return 0, ErrBadLetter
	}
	return r, nil
}

// NormalizeWord lowercases a submission and rejects empty or non-alphabetic
// words. Any alphabetic word is accepted; there is no dictionary.
func NormalizeWord(word string) (string, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return "", ErrEmptyWord
	}
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return "", ErrBadLetter
		}
	}
	return word, nil
}
