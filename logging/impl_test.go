package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestNewTestLoggerLevels(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Info("hello")
	logger.Debugw("details", "count", 3)

	entries := observed.All()
	test.That(t, len(entries), test.ShouldEqual, 2)
	test.That(t, entries[0].Message, test.ShouldEqual, "hello")
	test.That(t, entries[1].Message, test.ShouldEqual, "details")
}

func TestSubloggerNamesNest(t *testing.T) {
	root := NewBlankLogger("root")
	child := root.Sublogger("child")
	test.That(t, child.(*impl).name, test.ShouldEqual, "root.child")
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("debug")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lvl, test.ShouldEqual, DEBUG)

	_, err = LevelFromString("bogus")
	test.That(t, err, test.ShouldNotBeNil)
}
