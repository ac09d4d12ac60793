// Package domain contains the core entities of the expiration checker: the
// monitored domain records, notification channel configurations, the
// notification and error logs and check runs. They are free of
// infrastructure concerns so every layer can share them.
package domain
