package puzzle

import "errors"

var (
	// ErrNoPuzzle means the whole selectable pool was walked without any
	// car yielding a decodable photo.
	ErrNoPuzzle = errors.New("puzzle: no selectable car yielded a usable photo")

	// ErrUnknownCar means a guessed name matches nothing in the pool.
	ErrUnknownCar = errors.New("puzzle: unknown car")

	// ErrUnknownField means a hint was requested for a field the game does
	// not reveal.
	ErrUnknownField = errors.New("puzzle: unknown hint field")

	// ErrInvalidDay means a historical day outside [1, today] was requested.
	ErrInvalidDay = errors.New("puzzle: invalid day number")
)
