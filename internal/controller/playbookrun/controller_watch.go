// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package playbookrun

import (
	"time"

	batchv1 "k8s.io/api/batch/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	crcontroller "sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
	"github.com/playbookrun/playbook-operator/internal/controller"
)

const (
	DefaultBackoffBaseDelay = 5 * time.Millisecond
	DefaultBackoffMaxDelay  = 5 * time.Minute
)

// managedJobPredicate passes Job events that can move a PlaybookRun forward: creation,
// deletion and status changes of Jobs created by this controller.
func managedJobPredicate() predicate.Predicate {
	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool {
			return controller.IsManagedByController(e.Object)
		},
		UpdateFunc: func(e event.UpdateEvent) bool {
			if !controller.IsManagedByController(e.ObjectNew) {
				return false
			}
			oldJob, ok := e.ObjectOld.(*batchv1.Job)
			if !ok {
				return false
			}
			newJob, ok := e.ObjectNew.(*batchv1.Job)
			if !ok {
				return false
			}
			return !apiequality.Semantic.DeepEqual(oldJob.Status, newJob.Status)
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			return controller.IsManagedByController(e.Object)
		},
		GenericFunc: func(_ event.GenericEvent) bool {
			return false
		},
	}
}

func (r *Reconciler) rateLimiter() workqueue.TypedRateLimiter[reconcile.Request] {
	base := r.Options.BackoffBaseDelay
	if base <= 0 {
		base = DefaultBackoffBaseDelay
	}
	maxDelay := r.Options.BackoffMaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultBackoffMaxDelay
	}
	return workqueue.NewTypedItemExponentialFailureRateLimiter[reconcile.Request](base, maxDelay)
}

// SetupWithManager sets up the controller with the Manager.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.APIReader == nil {
		r.APIReader = mgr.GetAPIReader()
	}
	if r.Recorder == nil {
		r.Recorder = mgr.GetEventRecorderFor(ControllerName)
	}

	maxConcurrent := r.Options.MaxConcurrentReconciles
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&playbookrunv1alpha1.PlaybookRun{}).
		Watches(&batchv1.Job{},
			handler.EnqueueRequestsFromMapFunc(
				controller.OwnerWatchHandler(playbookrunv1alpha1.GroupVersion.WithKind("PlaybookRun"))),
			builder.WithPredicates(managedJobPredicate()),
		).
		WithOptions(crcontroller.Options{
			MaxConcurrentReconciles: maxConcurrent,
			RateLimiter:             r.rateLimiter(),
		}).
		Named("playbookrun").
		Complete(r)
}
