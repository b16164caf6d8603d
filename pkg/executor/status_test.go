/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package executor

import "testing"

func TestReachedStrictlyGreaterOrder(t *testing.T) {
	if !StatusStarted.Reached(StatusReady) {
		t.Fatalf("Started should have reached Ready")
	}
}

func TestReachedExactVariantMatch(t *testing.T) {
	if !StatusFinished.Reached(StatusFinished) {
		t.Fatalf("Finished should have reached Finished")
	}
	if StatusFailed.Reached(StatusFinished) {
		t.Fatalf("Failed and Finished share an order but are different variants")
	}
}

func TestReachedLowerOrderNeverReached(t *testing.T) {
	if StatusReady.Reached(StatusStarted) {
		t.Fatalf("Ready should not have reached Started")
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := []JobStatus{StatusCreateFailed, StatusInitializeFailed, StatusStartFailed,
		StatusCompleteFailed, StatusFinished, StatusFailed, StatusStopped, StatusDecodeFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%v should be terminal", s)
		}
	}

	nonTerminal := []JobStatus{StatusUnknown, StatusCreated, StatusReady, StatusInitialized, StatusStarted, StatusCompleted}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%v should not be terminal", s)
		}
	}
}
