package arm

import (
	"errors"
	"slices"
	"sync"
	"testing"
)

func TestNew_HomePosition(t *testing.T) {
	s := New(DefaultJoints)

	angles := s.Angles()
	if len(angles) != DefaultJoints {
		t.Fatalf("New(%d) has %d joints", DefaultJoints, len(angles))
	}
	for i, a := range angles {
		if a != HomeAngle {
			t.Errorf("joint %d = %d, want %d", i, a, HomeAngle)
		}
	}
	if got := s.LastCommand(); got != NoCommand {
		t.Errorf("LastCommand() = %q, want %q", got, NoCommand)
	}
}

func TestNew_InvalidCountFallsBackToDefault(t *testing.T) {
	if got := New(0).Joints(); got != DefaultJoints {
		t.Errorf("New(0).Joints() = %d, want %d", got, DefaultJoints)
	}
}

func TestSetAngle_AcceptsWholeRange(t *testing.T) {
	s := New(DefaultJoints)

	for v := MinAngle; v <= MaxAngle; v++ {
		for j := 0; j < DefaultJoints; j++ {
			if err := s.SetAngle(j, v); err != nil {
				t.Fatalf("SetAngle(%d, %d) error: %v", j, v, err)
			}
			got, _ := s.Angle(j)
			if got != v {
				t.Fatalf("Angle(%d) = %d after SetAngle(%d, %d)", j, got, j, v)
			}
		}
	}
}

func TestSetAngle_RejectsOutOfRange(t *testing.T) {
	s := New(DefaultJoints)
	if err := s.SetAngle(2, 45); err != nil {
		t.Fatal(err)
	}

	for _, v := range []int{-1000, -1, 181, 360, 1 << 20} {
		err := s.SetAngle(2, v)
		if !errors.Is(err, ErrInvalidAngle) {
			t.Errorf("SetAngle(2, %d) error = %v, want ErrInvalidAngle", v, err)
		}
		if got, _ := s.Angle(2); got != 45 {
			t.Errorf("angle changed to %d after rejected SetAngle(2, %d)", got, v)
		}
	}
}

func TestSetAngle_RejectsUnknownJoint(t *testing.T) {
	s := New(DefaultJoints)

	for _, j := range []int{-1, DefaultJoints, 99} {
		if err := s.SetAngle(j, 10); !errors.Is(err, ErrInvalidJoint) {
			t.Errorf("SetAngle(%d, 10) error = %v, want ErrInvalidJoint", j, err)
		}
	}
	for i, a := range s.Angles() {
		if a != HomeAngle {
			t.Errorf("joint %d changed to %d", i, a)
		}
	}
}

func TestResetAll(t *testing.T) {
	s := New(DefaultJoints)
	for j, v := range []int{0, 180, 12, 77, 150} {
		if err := s.SetAngle(j, v); err != nil {
			t.Fatal(err)
		}
	}

	s.ResetAll()

	for i, a := range s.Angles() {
		if a != HomeAngle {
			t.Errorf("joint %d = %d after ResetAll, want %d", i, a, HomeAngle)
		}
	}
}

func TestAngles_ReturnsCopy(t *testing.T) {
	s := New(3)
	angles := s.Angles()
	angles[0] = 1

	if got, _ := s.Angle(0); got != HomeAngle {
		t.Errorf("mutating Angles() result changed state to %d", got)
	}
}

func TestSetAngles(t *testing.T) {
	s := New(DefaultJoints)

	if err := s.SetAngles(map[int]int{0: 10, 4: 170}); err != nil {
		t.Fatal(err)
	}
	if got, want := s.Angles(), []int{10, 90, 90, 90, 170}; !slices.Equal(got, want) {
		t.Errorf("angles = %v, want %v", got, want)
	}

	tests := []struct {
		angles map[int]int
		want   error
	}{
		{map[int]int{1: 20, 2: 181}, ErrInvalidAngle},
		{map[int]int{1: 20, 9: 45}, ErrInvalidJoint},
		{map[int]int{1: 20, -1: 45}, ErrInvalidJoint},
	}
	for _, tt := range tests {
		if err := s.SetAngles(tt.angles); !errors.Is(err, tt.want) {
			t.Errorf("SetAngles(%v) error = %v, want %v", tt.angles, err, tt.want)
		}
	}
	if got, want := s.Angles(), []int{10, 90, 90, 90, 170}; !slices.Equal(got, want) {
		t.Errorf("rejected poses changed the arm: %v", got)
	}
}

// Run with -race: a pose is applied whole even while other joints move.
func TestSetAngles_ConcurrentWithReset(t *testing.T) {
	s := New(DefaultJoints)
	pose := map[int]int{0: 0, 1: 0, 2: 0, 3: 0, 4: 0}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 500 {
			if err := s.SetAngles(pose); err != nil {
				t.Errorf("SetAngles: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range 500 {
			s.ResetAll()
		}
	}()

	for range 500 {
		got := s.Angles()
		if !slices.Equal(got, []int{0, 0, 0, 0, 0}) && !slices.Equal(got, []int{90, 90, 90, 90, 90}) {
			t.Fatalf("observed a half-applied pose: %v", got)
		}
	}
	wg.Wait()
}
