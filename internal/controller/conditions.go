// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ConditionType is the type of a status condition managed by a controller.
type ConditionType string

// ConditionReason is the machine readable reason of a status condition.
type ConditionReason string

// ConditionedObject is a Kubernetes object whose status carries a list of conditions.
type ConditionedObject interface {
	client.Object
	GetConditions() []metav1.Condition
	SetConditions(conditions []metav1.Condition)
}

// SetCondition sets the condition on the object, stamping the object's current generation.
// LastTransitionTime only moves when the status of the condition changes.
func SetCondition(obj ConditionedObject, conditionType ConditionType, status metav1.ConditionStatus,
	reason ConditionReason, message string) {
	conditions := obj.GetConditions()
	meta.SetStatusCondition(&conditions, metav1.Condition{
		Type:               string(conditionType),
		Status:             status,
		Reason:             string(reason),
		Message:            message,
		ObservedGeneration: obj.GetGeneration(),
	})
	obj.SetConditions(conditions)
}

// RemoveCondition removes the condition of the given type from the object, if present.
func RemoveCondition(obj ConditionedObject, conditionType ConditionType) {
	conditions := obj.GetConditions()
	meta.RemoveStatusCondition(&conditions, string(conditionType))
	obj.SetConditions(conditions)
}
