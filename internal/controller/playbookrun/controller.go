// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package playbookrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	kerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
	"github.com/playbookrun/playbook-operator/internal/controller/playbookrun/render"
)

const (
	ControllerName = "playbookrun-controller"

	DefaultStatusPollInterval = 30 * time.Second
)

// Options tune the reconciler. Zero values fall back to defaults.
type Options struct {
	// Render holds the cluster wide settings applied to every Job.
	Render render.Options
	// ReconcileTimeout bounds a single invocation. Zero means unbounded.
	ReconcileTimeout time.Duration
	// StatusPollInterval is how often a non-terminal run is re-checked in addition to Job events.
	StatusPollInterval time.Duration
	// MaxConcurrentReconciles is the number of distinct PlaybookRuns reconciled in parallel.
	MaxConcurrentReconciles int
	// BackoffBaseDelay and BackoffMaxDelay bound the per-item retry backoff after an error.
	BackoffBaseDelay time.Duration
	BackoffMaxDelay  time.Duration
}

// Reconciler reconciles a PlaybookRun object
type Reconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// APIReader reads straight from the API server. Whether a Job exists is always
	// decided on an authoritative read, never on the informer cache.
	APIReader client.Reader
	Recorder  record.EventRecorder
	Options   Options
}

// +kubebuilder:rbac:groups=playbookrun.dev,resources=playbookruns,verbs=get;list;watch
// +kubebuilder:rbac:groups=playbookrun.dev,resources=playbookruns/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=batch,resources=jobs,verbs=get;list;watch;create
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Reconcile drives a PlaybookRun from its request to a terminal phase, launching exactly one Job.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx).WithValues("playbookrun", req.NamespacedName)
	ctx = log.IntoContext(ctx, logger)

	if timeout := r.Options.ReconcileTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := r.reconcile(ctx, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		logger.Info("Reconcile timed out, requeueing", "timeout", r.Options.ReconcileTimeout)
		return ctrl.Result{Requeue: true}, nil
	}
	return result, err
}

func (r *Reconciler) reconcile(ctx context.Context, req ctrl.Request) (result ctrl.Result, rErr error) {
	logger := log.FromContext(ctx)

	run := &playbookrunv1alpha1.PlaybookRun{}
	if err := r.reader().Get(ctx, req.NamespacedName, run); err != nil {
		if apierrors.IsNotFound(err) {
			logger.V(1).Info("PlaybookRun not found, ignoring")
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("failed to get PlaybookRun: %w", err)
	}

	// The Job is garbage collected through its owner reference.
	if !run.DeletionTimestamp.IsZero() {
		return ctrl.Result{}, nil
	}

	if run.Status.Phase.IsTerminal() {
		return ctrl.Result{}, nil
	}

	// Keep a copy for comparison
	old := run.DeepCopy()

	// Emitted only once the status it reports has been written.
	var event *runEvent

	// Deferred status update
	defer func() {
		if apiequality.Semantic.DeepEqual(old.Status, run.Status) {
			return
		}

		// The resourceVersion read above makes this write fail with a conflict
		// if anything else changed the PlaybookRun in the meantime.
		if err := r.Status().Update(ctx, run); err != nil {
			logger.Error(err, "Failed to update PlaybookRun status")
			if rErr == nil {
				rErr = err
			} else {
				rErr = kerrors.NewAggregate([]error{rErr, err})
			}
			return
		}
		recordPhaseTransition(old.Status.Phase, run.Status.Phase)
		if event != nil {
			r.Recorder.Event(run, event.eventType, event.reason, event.message)
		}
	}()

	run.Status.ObservedGeneration = run.Generation

	desired, err := render.Job(render.Input{PlaybookRun: run, Options: r.Options.Render})
	if err != nil {
		if render.IsValidationError(err) {
			logger.Info("Rejecting invalid PlaybookRun", "reason", err.Error())
			markInvalidSpec(run, err)
			validationFailuresTotal.Inc()
			event = newRunEvent(corev1.EventTypeWarning, EventReasonInvalidSpec, "%s", err.Error())
			return ctrl.Result{}, reconcile.TerminalError(err)
		}
		return ctrl.Result{}, fmt.Errorf("failed to render job: %w", err)
	}

	observed, err := r.fetchJob(ctx, run)
	if err != nil {
		return ctrl.Result{}, err
	}

	if !observed.Present {
		if run.Status.RunCount > 0 {
			// The Job was launched but is gone without a terminal phase on record.
			// It is never launched again.
			logger.Info("Job disappeared before completion", "job", desired.Name)
			markJobNotFound(run, desired.Name)
			event = newRunEvent(corev1.EventTypeWarning, EventReasonJobNotFound,
				"Job %s was deleted before it reported completion", desired.Name)
			return ctrl.Result{}, nil
		}
		result, event, rErr = r.createJob(ctx, run, desired)
		return result, rErr
	}

	if !metav1.IsControlledBy(observed.Job, run) {
		// A Job with the derived name belongs to someone else, usually a deleted PlaybookRun
		// of the same name whose Job has not been collected yet.
		return ctrl.Result{}, fmt.Errorf("job %s/%s is not controlled by this PlaybookRun",
			observed.Job.Namespace, observed.Job.Name)
	}

	if run.Status.RunCount == 0 {
		// A previous invocation created the Job but its status write was lost.
		logger.Info("Adopting existing Job", "job", observed.Job.Name)
		run.Status.RunCount = 1
		run.Status.JobName = observed.Job.Name
		setJobCreatedCondition(run, observed.Job.Name)
	}

	checkSpecDrift(run, observed.Job, desired)

	result, event = r.syncRunStatus(run, observed)
	return result, nil
}

// createJob creates the desired Job. Losing a creation race is not an error: the next
// invocation finds the Job and adopts it. A Job the API server rejects as invalid fails the run.
func (r *Reconciler) createJob(ctx context.Context, run *playbookrunv1alpha1.PlaybookRun,
	desired *batchv1.Job) (ctrl.Result, *runEvent, error) {
	logger := log.FromContext(ctx)

	if err := r.Create(ctx, desired); err != nil {
		switch {
		case apierrors.IsAlreadyExists(err):
			logger.Info("Job already exists, requeueing to observe it", "job", desired.Name)
			return ctrl.Result{Requeue: true}, nil, nil
		case apierrors.IsInvalid(err):
			logger.Info("Job rejected by the API server", "job", desired.Name, "reason", err.Error())
			markJobRejected(run, desired.Name, err)
			event := newRunEvent(corev1.EventTypeWarning, EventReasonJobRejected, "%s", run.Status.Message)
			return ctrl.Result{}, event, reconcile.TerminalError(fmt.Errorf("failed to create job %s: %w", desired.Name, err))
		}
		return ctrl.Result{}, nil, fmt.Errorf("failed to create job %s: %w", desired.Name, err)
	}

	logger.Info("Created Job", "job", desired.Name)
	jobsCreatedTotal.Inc()
	r.Recorder.Eventf(run, corev1.EventTypeNormal, EventReasonJobCreated, "Created Job %s", desired.Name)

	run.Status.RunCount++
	run.Status.JobName = desired.Name
	run.Status.Phase = playbookrunv1alpha1.PlaybookRunPending
	run.Status.Message = ""
	setJobCreatedCondition(run, desired.Name)
	setJobPendingCondition(run)

	return ctrl.Result{RequeueAfter: r.statusPollInterval()}, nil, nil
}

// syncRunStatus mirrors the observed Job onto the PlaybookRun status. The Job itself is never changed.
// A terminal phase comes back with the event announcing it.
func (r *Reconciler) syncRunStatus(run *playbookrunv1alpha1.PlaybookRun, observed *observedJob) (ctrl.Result, *runEvent) {
	job := observed.Job
	run.Status.JobName = job.Name
	if run.Status.StartTime == nil && job.Status.StartTime != nil {
		run.Status.StartTime = job.Status.StartTime.DeepCopy()
	}

	switch observed.Phase {
	case JobSucceeded:
		run.Status.Phase = playbookrunv1alpha1.PlaybookRunSucceeded
		run.Status.Message = observed.Message
		run.Status.CompletionTime = observed.FinishedAt.DeepCopy()
		setRunSucceededCondition(run, observed.Message)
		return ctrl.Result{}, newRunEvent(corev1.EventTypeNormal, EventReasonRunSucceeded,
			"Job %s completed successfully", job.Name)
	case JobFailed:
		run.Status.Phase = playbookrunv1alpha1.PlaybookRunFailed
		run.Status.Message = observed.Message
		run.Status.CompletionTime = observed.FinishedAt.DeepCopy()
		setRunFailedCondition(run, observed.Message)
		return ctrl.Result{}, newRunEvent(corev1.EventTypeWarning, EventReasonRunFailed,
			"Job %s failed: %s", job.Name, observed.Message)
	case JobRunning:
		run.Status.Phase = playbookrunv1alpha1.PlaybookRunRunning
		setJobRunningCondition(run)
	default:
		run.Status.Phase = playbookrunv1alpha1.PlaybookRunPending
		setJobPendingCondition(run)
	}

	return ctrl.Result{RequeueAfter: r.statusPollInterval()}, nil
}

func (r *Reconciler) reader() client.Reader {
	if r.APIReader != nil {
		return r.APIReader
	}
	return r.Client
}

func (r *Reconciler) statusPollInterval() time.Duration {
	if r.Options.StatusPollInterval > 0 {
		return r.Options.StatusPollInterval
	}
	return DefaultStatusPollInterval
}
